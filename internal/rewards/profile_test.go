package rewards

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

func testEngine(mem *store.Memory, now time.Time) *Engine {
	e := NewEngine(mem, logger.Nop())
	e.now = func() time.Time { return now }
	return e
}

func addSpend(mem *store.Memory, id, category, amount string, date time.Time) {
	mem.InsertTransaction(context.Background(), &domain.Transaction{
		ID:       id,
		UserID:   "user-1",
		Date:     date,
		Amount:   dec(amount),
		Category: category,
	})
}

func TestSpendingProfile(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	recent := now.AddDate(0, -1, 0)

	addSpend(mem, "t1", "dining", "-50.00", recent)
	addSpend(mem, "t2", "dining", "-25.00", recent)
	addSpend(mem, "t3", "groceries", "-125.00", recent)
	addSpend(mem, "t4", "", "-10.00", recent)       // uncategorized
	addSpend(mem, "t5", "dining", "200.00", recent) // payment, excluded
	addSpend(mem, "t6", "dining", "-999.00", now.AddDate(0, 0, -400))

	e := testEngine(mem, now)
	profile, err := e.SpendingProfile(context.Background(), "user-1", 12)
	if err != nil {
		t.Fatalf("SpendingProfile: %v", err)
	}

	want := map[string]string{
		"dining":    "75.00",
		"groceries": "125.00",
		"default":   "10.00",
	}
	if len(profile) != len(want) {
		t.Fatalf("profile has %d categories, want %d: %v", len(profile), len(want), profile)
	}
	for cat, amount := range want {
		if !profile[cat].Equal(dec(amount)) {
			t.Errorf("profile[%q] = %s, want %s", cat, profile[cat], amount)
		}
	}
}

func TestSpendingProfileAnnualizes(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	addSpend(mem, "t1", "gas", "-100.00", now.AddDate(0, 0, -10))

	e := testEngine(mem, now)
	profile, err := e.SpendingProfile(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("SpendingProfile: %v", err)
	}

	// $100 over 3 months scales by 12/3.
	if !profile["gas"].Equal(dec("400.00")) {
		t.Errorf("profile[gas] = %s, want 400.00", profile["gas"])
	}
}

func TestSpendingProfileEmpty(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	e := testEngine(store.NewMemory(), now)

	profile, err := e.SpendingProfile(context.Background(), "user-1", 12)
	if err != nil {
		t.Fatalf("SpendingProfile: %v", err)
	}
	if len(profile) != 1 {
		t.Fatalf("profile = %v, want only the default bucket", profile)
	}
	if !profile["default"].Equal(decimal.Zero) {
		t.Errorf("profile[default] = %s, want 0", profile["default"])
	}
}
