package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionDedupLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	tx := &domain.Transaction{
		ID:          "tx-1",
		UserID:      "u1",
		Date:        day(2024, time.January, 15),
		Amount:      decimal.NewFromFloat(-5.75),
		Currency:    "CAD",
		RawMerchant: "STARBUCKS #4521",
	}
	if err := m.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	got, err := m.FindByKey(ctx, tx.Key())
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if got == nil || got.ID != "tx-1" {
		t.Errorf("FindByKey = %+v, want tx-1", got)
	}

	// Same key with a different decimal representation still matches.
	other := tx.Key()
	other.Amount = decimal.RequireFromString("-5.750")
	got, err = m.FindByKey(ctx, other)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if got == nil {
		t.Error("FindByKey with equivalent amount representation = nil, want match")
	}

	// Different merchant misses.
	miss := tx.Key()
	miss.RawMerchant = "TIM HORTONS"
	got, err = m.FindByKey(ctx, miss)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if got != nil {
		t.Errorf("FindByKey for different merchant = %+v, want nil", got)
	}
}

func TestListUncategorized(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := day(2024, time.March, 1)
	for i, cat := range []string{"", "groceries", "", ""} {
		tx := &domain.Transaction{
			ID:        "tx-" + string(rune('a'+i)),
			UserID:    "u1",
			Date:      base,
			Amount:    decimal.NewFromInt(int64(-i - 1)),
			Category:  cat,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}

	got, err := m.ListUncategorized(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListUncategorized: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListUncategorized returned %d transactions, want 2", len(got))
	}
	// Oldest first.
	if got[0].ID != "tx-a" {
		t.Errorf("first uncategorized = %s, want tx-a", got[0].ID)
	}
}

func TestMerchantUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := &domain.Merchant{ID: "m-1", CanonicalName: "Starbucks", Aliases: []string{"starbucks 4521"}}
	if err := m.InsertMerchant(ctx, first); err != nil {
		t.Fatalf("InsertMerchant: %v", err)
	}
	dup := &domain.Merchant{ID: "m-2", CanonicalName: "Starbucks"}
	if err := m.InsertMerchant(ctx, dup); err == nil {
		t.Error("InsertMerchant with duplicate canonical name succeeded, want error")
	}

	got, err := m.FindMerchantByName(ctx, "Starbucks")
	if err != nil {
		t.Fatalf("FindMerchantByName: %v", err)
	}
	if got == nil || got.ID != "m-1" {
		t.Errorf("FindMerchantByName = %+v, want m-1", got)
	}
}

func TestAIQuota(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetAIQuota("u1", 2)

	if err := m.CheckAICalls(ctx, "u1"); err != nil {
		t.Fatalf("CheckAICalls with fresh quota: %v", err)
	}
	if err := m.IncrementAICalls(ctx, "u1", 2); err != nil {
		t.Fatalf("IncrementAICalls: %v", err)
	}
	err := m.CheckAICalls(ctx, "u1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("CheckAICalls after exhaustion = %v, want ErrQuotaExceeded", err)
	}
}

func TestListActiveCardsStableOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.PutCard(&domain.Card{ID: "c2", UserID: "u1", Issuer: "RBC", Product: "Avion", IsActive: true})
	m.PutCard(&domain.Card{ID: "c1", UserID: "u1", Issuer: "CIBC", Product: "Dividend", IsActive: true})
	m.PutCard(&domain.Card{ID: "c3", UserID: "u1", Issuer: "TD", Product: "Cashback", IsActive: false})

	got, err := m.ListActiveCards(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActiveCards: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListActiveCards returned %d cards, want 2 (inactive excluded)", len(got))
	}
	if got[0].Issuer != "CIBC" || got[1].Issuer != "RBC" {
		t.Errorf("card order = %s, %s; want CIBC, RBC", got[0].Issuer, got[1].Issuer)
	}
}
