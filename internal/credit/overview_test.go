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

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func addCardTx(mem *store.Memory, id, cardID, amount string) {
	mem.InsertTransaction(context.Background(), &domain.Transaction{
		ID:     id,
		UserID: "user-1",
		CardID: cardID,
		Date:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount: dec(amount),
	})
}

func TestUtilizationHealthBoundaries(t *testing.T) {
	cases := []struct {
		rate string
		want HealthStatus
	}{
		{"0", HealthUnderutilized},
		{"9.99", HealthUnderutilized},
		{"10.00", HealthOptimal},
		{"30.00", HealthOptimal},
		{"30.01", HealthElevated},
		{"50.00", HealthElevated},
		{"50.01", HealthHigh},
		{"95", HealthHigh},
	}
	for _, c := range cases {
		if got := UtilizationHealth(dec(c.rate)); got != c.want {
			t.Errorf("UtilizationHealth(%s) = %s, want %s", c.rate, got, c.want)
		}
	}
}

func TestCardUtilization(t *testing.T) {
	rate, health := CardUtilization(dec("10000"), dec("2500"))
	if !rate.Equal(dec("25")) || health != HealthOptimal {
		t.Errorf("got (%s, %s), want (25, optimal)", rate, health)
	}

	rate, health = CardUtilization(dec("0"), dec("100"))
	if !rate.Equal(decimal.Zero) || health != HealthNA {
		t.Errorf("zero limit: got (%s, %s), want (0, n_a)", rate, health)
	}

	rate, health = CardUtilization(dec("5000"), decimal.Zero)
	if !rate.Equal(decimal.Zero) || health != HealthUnderutilized {
		t.Errorf("zero balance: got (%s, %s), want (0, underutilized)", rate, health)
	}
}

func TestUtilizationMonotonic(t *testing.T) {
	limit := dec("5000")
	prev := decimal.Zero
	for _, b := range []string{"0", "100", "500", "1500", "2500", "4999", "5000"} {
		rate, _ := CardUtilization(limit, dec(b))
		if rate.LessThan(prev) {
			t.Fatalf("utilization decreased from %s to %s at balance %s", prev, rate, b)
		}
		prev = rate
	}
}

func TestCurrentBalance(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", CreditLimit: dec("5000"), IsActive: true})
	addCardTx(mem, "a", "card-1", "-100.00") // charge
	addCardTx(mem, "b", "card-1", "-50.25")  // charge
	addCardTx(mem, "c", "card-1", "30.00")   // payment

	e := NewEngine(mem, logger.Nop())
	balance, err := e.CurrentBalance(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	if !balance.Equal(dec("120.25")) {
		t.Errorf("balance = %s, want 120.25", balance)
	}
}

func TestCurrentBalanceNeverNegative(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", CreditLimit: dec("5000"), IsActive: true})
	addCardTx(mem, "a", "card-1", "-100.00")
	addCardTx(mem, "b", "card-1", "500.00") // overpayment

	e := NewEngine(mem, logger.Nop())
	balance, err := e.CurrentBalance(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	if !balance.Equal(decimal.Zero) {
		t.Errorf("balance = %s, want 0 (overpayment floors at zero)", balance)
	}
}

func TestOverviewNoCards(t *testing.T) {
	mem := store.NewMemory()
	e := NewEngine(mem, logger.Nop())

	ov, err := e.Overview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.TotalCreditLimit.Equal(decimal.Zero) || !ov.TotalUsed.Equal(decimal.Zero) ||
		!ov.OverallUtilization.Equal(decimal.Zero) {
		t.Errorf("zero-card overview not all-zero: %+v", ov)
	}
	if ov.HealthStatus != HealthNA {
		t.Errorf("health = %s, want n_a", ov.HealthStatus)
	}
	if len(ov.Cards) != 0 {
		t.Errorf("cards = %d, want 0", len(ov.Cards))
	}
}

func TestOverviewAggregates(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCard(&domain.Card{ID: "card-1", UserID: "user-1", Issuer: "RBC", CreditLimit: dec("10000"), IsActive: true})
	mem.PutCard(&domain.Card{ID: "card-2", UserID: "user-1", Issuer: "TD", CreditLimit: dec("5000"), IsActive: true})
	addCardTx(mem, "a", "card-1", "-2000.00")
	addCardTx(mem, "b", "card-2", "-1000.00")

	e := NewEngine(mem, logger.Nop())
	ov, err := e.Overview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if !ov.TotalCreditLimit.Equal(dec("15000")) {
		t.Errorf("total limit = %s, want 15000", ov.TotalCreditLimit)
	}
	if !ov.TotalUsed.Equal(dec("3000")) {
		t.Errorf("total used = %s, want 3000", ov.TotalUsed)
	}
	if !ov.OverallUtilization.Equal(dec("20")) {
		t.Errorf("overall utilization = %s, want 20", ov.OverallUtilization)
	}
	if ov.HealthStatus != HealthOptimal {
		t.Errorf("health = %s, want optimal", ov.HealthStatus)
	}
	if len(ov.Cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(ov.Cards))
	}
}

func TestCardSummaryMissing(t *testing.T) {
	mem := store.NewMemory()
	e := NewEngine(mem, logger.Nop())

	s, err := e.CardSummary(context.Background(), "user-1", "nope")
	if err != nil {
		t.Fatalf("CardSummary: %v", err)
	}
	if s != nil {
		t.Error("expected nil for unknown card")
	}
}
