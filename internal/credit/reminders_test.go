package credit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/logger"
	"github.com/creditsphere/creditsphere/internal/store"
)

func TestPaymentRemindersWindow(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "due-soon", UserID: "user-1", Issuer: "RBC", CreditLimit: dec("5000"), DueDay: 18, IsActive: true})
	mem.PutCard(&domain.Card{ID: "due-late", UserID: "user-1", Issuer: "TD", CreditLimit: dec("5000"), DueDay: 28, IsActive: true})
	mem.PutCard(&domain.Card{ID: "no-due-day", UserID: "user-1", Issuer: "BMO", CreditLimit: dec("5000"), IsActive: true})
	addCardTx(mem, "a", "due-soon", "-400.00")

	e := NewEngine(mem, logger.Nop())
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	reminders, err := e.PaymentReminders(context.Background(), "user-1", 7, today)
	if err != nil {
		t.Fatalf("PaymentReminders: %v", err)
	}

	if len(reminders) != 1 {
		t.Fatalf("got %d reminders, want 1 (only due day 18 within 7 days)", len(reminders))
	}
	r := reminders[0]
	if r.CardID != "due-soon" {
		t.Errorf("card = %s", r.CardID)
	}
	if r.DaysUntilDue != 3 {
		t.Errorf("days until due = %d, want 3", r.DaysUntilDue)
	}
	if !r.MinimumPayment.Equal(dec("12.00")) {
		t.Errorf("minimum payment = %s, want 12.00 (3%% of 400)", r.MinimumPayment)
	}
}

func TestPaymentRemindersRollToNextMonth(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", CreditLimit: dec("5000"), DueDay: 2, IsActive: true})

	e := NewEngine(mem, logger.Nop())
	today := time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)
	reminders, err := e.PaymentReminders(context.Background(), "user-1", 7, today)
	if err != nil {
		t.Fatalf("PaymentReminders: %v", err)
	}

	if len(reminders) != 1 {
		t.Fatalf("got %d reminders, want 1", len(reminders))
	}
	if got := reminders[0].DueDate.Format("2006-01-02"); got != "2024-04-02" {
		t.Errorf("due date = %s, want 2024-04-02", got)
	}
	if reminders[0].DaysUntilDue != 5 {
		t.Errorf("days until due = %d, want 5", reminders[0].DaysUntilDue)
	}
}

func TestPaymentRemindersZeroBalance(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", CreditLimit: dec("5000"), DueDay: 16, IsActive: true})

	e := NewEngine(mem, logger.Nop())
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	reminders, err := e.PaymentReminders(context.Background(), "user-1", 7, today)
	if err != nil {
		t.Fatalf("PaymentReminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("got %d reminders, want 1", len(reminders))
	}
	if !reminders[0].MinimumPayment.Equal(decimal.Zero) {
		t.Errorf("minimum payment = %s, want 0 for zero balance", reminders[0].MinimumPayment)
	}
}

func TestPaymentRemindersMinimumFloor(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", CreditLimit: dec("5000"), DueDay: 16, IsActive: true})
	addCardTx(mem, "a", "card-1", "-50.00")

	e := NewEngine(mem, logger.Nop())
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	reminders, err := e.PaymentReminders(context.Background(), "user-1", 7, today)
	if err != nil {
		t.Fatalf("PaymentReminders: %v", err)
	}
	if !reminders[0].MinimumPayment.Equal(dec("10.00")) {
		t.Errorf("minimum payment = %s, want floor of 10.00", reminders[0].MinimumPayment)
	}
}

func TestNextDueDateCapsAt28(t *testing.T) {
	today := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	due := nextDueDate(today, 31)
	if got := due.Format("2006-01-02"); got != "2024-02-28" {
		t.Errorf("due = %s, want 2024-02-28", got)
	}
}

func TestPaymentRemindersSorted(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "later", UserID: "user-1", CreditLimit: dec("5000"), DueDay: 20, IsActive: true})
	mem.PutCard(&domain.Card{ID: "sooner", UserID: "user-1", CreditLimit: dec("5000"), DueDay: 16, IsActive: true})

	e := NewEngine(mem, logger.Nop())
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	reminders, err := e.PaymentReminders(context.Background(), "user-1", 7, today)
	if err != nil {
		t.Fatalf("PaymentReminders: %v", err)
	}
	if len(reminders) != 2 {
		t.Fatalf("got %d reminders, want 2", len(reminders))
	}
	if reminders[0].CardID != "sooner" || reminders[1].CardID != "later" {
		t.Errorf("reminders not sorted by days until due: %s, %s", reminders[0].CardID, reminders[1].CardID)
	}
}
