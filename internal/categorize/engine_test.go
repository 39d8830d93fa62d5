package categorize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/logger"
	"github.com/creditsphere/creditsphere/internal/store"
)

type fakeAI struct {
	canonical     string
	normConf      int
	category      string
	subcategory   string
	err           error
	normalizeHits int
	categorizeHit int
}

func (f *fakeAI) NormalizeMerchant(_ context.Context, _ string, _ decimal.Decimal) (string, int, error) {
	f.normalizeHits++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.canonical, f.normConf, nil
}

func (f *fakeAI) Categorize(_ context.Context, _ string, _ decimal.Decimal, _ string) (string, string, int, error) {
	f.categorizeHit++
	if f.err != nil {
		return "", "", 0, f.err
	}
	return f.category, f.subcategory, 90, nil
}

func seedTransaction(mem *store.Memory, rawMerchant string) *domain.Transaction {
	tx := &domain.Transaction{
		ID:          "tx-1",
		UserID:      "user-1",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-5.75"),
		Currency:    "CAD",
		RawMerchant: rawMerchant,
	}
	mem.InsertTransaction(context.Background(), tx)
	return tx
}

func TestCategorizeExactAlias(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "STARBUCKS")

	e := NewEngine(mem, nil, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if tx.Category != "dining" {
		t.Errorf("category = %q, want dining", tx.Category)
	}
	if tx.MerchantID == "" {
		t.Error("merchant not linked")
	}

	m, err := mem.FindMerchantByName(context.Background(), "Starbucks")
	if err != nil || m == nil {
		t.Fatalf("merchant not created: %v", err)
	}
	if !m.HasAlias("STARBUCKS") {
		t.Error("raw descriptor not recorded as alias")
	}
}

func TestCategorizeFuzzyAlias(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "STARBUKS")

	e := NewEngine(mem, nil, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if tx.Category != "dining" {
		t.Errorf("category = %q, want dining", tx.Category)
	}
}

func TestCategorizeQuotaExhausted(t *testing.T) {
	mem := store.NewMemory()
	mem.SetAIQuota("user-1", 0)
	tx := seedTransaction(mem, "AMZ*MKTP US*1A2B3C")

	ai := &fakeAI{canonical: "Amazon", normConf: 85, category: "shopping"}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if tx.Category != domain.CategoryOther {
		t.Errorf("category = %q, want other", tx.Category)
	}
	if tx.MerchantID != "" {
		t.Error("merchant must not be linked when quota is exhausted")
	}
	if ai.normalizeHits != 0 {
		t.Error("AI must not be called when quota is exhausted")
	}
}

func TestCategorizeAIFallback(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "AMZ*MKTP US*1A2B3C")

	ai := &fakeAI{canonical: "Amazon", normConf: 85, category: "shopping", subcategory: "marketplace"}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if tx.Category != "shopping" {
		t.Errorf("category = %q, want shopping", tx.Category)
	}
	if tx.Subcategory != "marketplace" {
		t.Errorf("subcategory = %q", tx.Subcategory)
	}
	if tx.MerchantID == "" {
		t.Error("high-confidence AI merchant must be linked")
	}
	if ai.normalizeHits != 1 || ai.categorizeHit != 1 {
		t.Errorf("AI calls = %d/%d, want 1/1", ai.normalizeHits, ai.categorizeHit)
	}
}

func TestCategorizeAILowConfidenceNoMerchantLink(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "SOME CRYPTIC 9Z8Y7X")

	ai := &fakeAI{canonical: "Some Shop", normConf: 50, category: "shopping"}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if tx.MerchantID != "" {
		t.Error("low-confidence AI merchant must not be linked")
	}
	if tx.Category != "shopping" {
		t.Errorf("category = %q, want shopping", tx.Category)
	}
}

func TestCategorizeAIInvalidCategory(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "SOME CRYPTIC 9Z8Y7X")

	ai := &fakeAI{canonical: "Some Shop", normConf: 85, category: "cryptocurrency"}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if tx.Category != domain.CategoryOther {
		t.Errorf("category = %q, want other (invalid AI category coerced)", tx.Category)
	}
}

func TestCategorizeAIFailureFallsBackToOther(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "SOME CRYPTIC 9Z8Y7X")

	ai := &fakeAI{err: errors.New("model unreachable")}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if tx.Category != domain.CategoryOther {
		t.Errorf("category = %q, want other", tx.Category)
	}
}

func TestCategorizeConsumesQuota(t *testing.T) {
	mem := store.NewMemory()
	mem.SetAIQuota("user-1", 2)
	tx := seedTransaction(mem, "SOME CRYPTIC 9Z8Y7X")

	ai := &fakeAI{canonical: "Some Shop", normConf: 85, category: "shopping"}
	e := NewEngine(mem, ai, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	// One transaction burns two calls, exhausting the quota of 2.
	if err := mem.CheckAICalls(context.Background(), "user-1"); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Errorf("CheckAICalls = %v, want ErrQuotaExceeded", err)
	}
}

func TestCategorizeEmptyRawMerchant(t *testing.T) {
	mem := store.NewMemory()
	tx := seedTransaction(mem, "")

	e := NewEngine(mem, nil, nil, logger.Nop())
	if err := e.Categorize(context.Background(), tx); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if tx.Category != domain.CategoryOther {
		t.Errorf("category = %q, want other", tx.Category)
	}
}

func TestCategorizeUncategorized(t *testing.T) {
	mem := store.NewMemory()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for i, raw := range []string{"STARBUCKS", "TIM HORTONS", "NETFLIX.COM"} {
		mem.InsertTransaction(context.Background(), &domain.Transaction{
			ID:          raw,
			UserID:      "user-1",
			Date:        base.AddDate(0, 0, i),
			Amount:      decimal.RequireFromString("-10"),
			RawMerchant: raw,
		})
	}

	e := NewEngine(mem, nil, nil, logger.Nop())
	n, err := e.CategorizeUncategorized(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("CategorizeUncategorized: %v", err)
	}
	if n != 3 {
		t.Errorf("processed %d, want 3", n)
	}

	left, _ := mem.ListUncategorized(context.Background(), "user-1", 100)
	if len(left) != 0 {
		t.Errorf("%d transactions left uncategorized", len(left))
	}
}

func TestCategoryBreakdown(t *testing.T) {
	mem := store.NewMemory()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	txns := []struct {
		id, category, amount string
	}{
		{"a", "dining", "-5.75"},
		{"b", "dining", "-12.25"},
		{"c", "groceries", "-84.00"},
		{"d", "", "-3.00"},
	}
	for _, x := range txns {
		mem.InsertTransaction(context.Background(), &domain.Transaction{
			ID:       x.id,
			UserID:   "user-1",
			Date:     base,
			Amount:   decimal.RequireFromString(x.amount),
			Category: x.category,
		})
	}

	e := NewEngine(mem, nil, nil, logger.Nop())
	breakdown, err := e.CategoryBreakdown(context.Background(), "user-1", base.AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}

	if !breakdown["dining"].Equal(decimal.RequireFromString("-18")) {
		t.Errorf("dining = %s, want -18", breakdown["dining"])
	}
	if !breakdown["groceries"].Equal(decimal.RequireFromString("-84")) {
		t.Errorf("groceries = %s, want -84", breakdown["groceries"])
	}
	if _, ok := breakdown[""]; ok {
		t.Error("uncategorized transactions must be excluded")
	}
}
