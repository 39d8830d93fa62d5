package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/store"
)

func cashback(rate float64) domain.RewardRate {
	return domain.RewardRate{Rate: rate, Type: domain.RewardCashback}
}

func points(rate float64) domain.RewardRate {
	return domain.RewardRate{Rate: rate, Type: domain.RewardPoints}
}

func TestMatchRewardRate(t *testing.T) {
	rewards := map[string]domain.RewardRate{
		"dining":      cashback(3),
		"restaurants": cashback(2),
		"travel":      points(2),
		"gas_station": cashback(1.5),
		"default":     cashback(0.5),
	}

	cases := []struct {
		category string
		wantRate float64
	}{
		{"dining", 3},        // exact
		{"restaurant", 2},    // plural variant
		{"travels", 2},       // singular variant
		{"gas station", 1.5}, // space to underscore
		{"pharmacy", 0.5},    // default fallback
	}
	for _, c := range cases {
		rate, ok := matchRewardRate(rewards, c.category)
		if !ok {
			t.Errorf("matchRewardRate(%q): no match", c.category)
			continue
		}
		if rate.Rate != c.wantRate {
			t.Errorf("matchRewardRate(%q).Rate = %v, want %v", c.category, rate.Rate, c.wantRate)
		}
	}

	if _, ok := matchRewardRate(map[string]domain.RewardRate{"dining": cashback(3)}, "pharmacy"); ok {
		t.Error("matchRewardRate matched a category with no entry and no default")
	}
}

func TestCardRewards(t *testing.T) {
	product := &domain.CreditCardProduct{
		Rewards: map[string]domain.RewardRate{
			"dining": cashback(2),
			"travel": points(2),
		},
	}
	profile := map[string]decimal.Decimal{
		"dining":  dec("1000.00"),
		"travel":  dec("1000.00"),
		"default": decimal.Zero,
	}

	// 2% of 1000 = 20; 2 pts/$ on 1000 at 100 pts/$1 = 20.
	if got := CardRewards(product, profile); !got.Equal(dec("40.00")) {
		t.Errorf("CardRewards = %s, want 40.00", got)
	}
}

func TestWelcomeBonusValue(t *testing.T) {
	cases := []struct {
		name  string
		bonus *domain.WelcomeBonus
		years int
		want  string
	}{
		{"cash over 3 years", &domain.WelcomeBonus{Value: 300, Type: domain.RewardCashback}, 3, "100.00"},
		{"points over 3 years", &domain.WelcomeBonus{Value: 30000, Type: domain.RewardPoints}, 3, "100.00"},
		{"zero years uses default", &domain.WelcomeBonus{Value: 300, Type: domain.RewardCashback}, 0, "100.00"},
		{"no bonus", nil, 3, "0"},
	}
	for _, c := range cases {
		if got := WelcomeBonusValue(c.bonus, c.years); !got.Equal(dec(c.want)) {
			t.Errorf("%s: WelcomeBonusValue = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestValuateNAVFormula(t *testing.T) {
	product := &domain.CreditCardProduct{
		ProductName:  "Everyday Cash",
		AnnualFee:    dec("120.00"),
		Rewards:      map[string]domain.RewardRate{"dining": cashback(5)},
		WelcomeBonus: &domain.WelcomeBonus{Value: 300, Type: domain.RewardCashback},
	}
	profile := map[string]decimal.Decimal{"dining": dec("1200.00")}

	v := Valuate(product, profile, DefaultBonusYears)
	if !v.AnnualRewards.Equal(dec("60.00")) {
		t.Errorf("AnnualRewards = %s, want 60.00", v.AnnualRewards)
	}
	if !v.BonusValue.Equal(dec("100.00")) {
		t.Errorf("BonusValue = %s, want 100.00", v.BonusValue)
	}

	want := v.AnnualRewards.Add(v.BonusValue).Sub(v.AnnualFee)
	if v.NAV.Sub(want).Abs().GreaterThan(dec("0.01")) {
		t.Errorf("NAV = %s, want %s", v.NAV, want)
	}
	if !v.NAV.Equal(dec("40.00")) {
		t.Errorf("NAV = %s, want 40.00", v.NAV)
	}
}

func TestRecommend(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	addSpend(mem, "t1", "dining", "-600.00", now.AddDate(0, -1, 0))
	addSpend(mem, "t2", "dining", "-600.00", now.AddDate(0, -2, 0))

	mem.PutProduct(&domain.CreditCardProduct{
		ID: "p-basic", Issuer: "A-Bank", ProductName: "Basic",
		Rewards:  map[string]domain.RewardRate{"dining": cashback(2)},
		IsActive: true,
	})
	mem.PutProduct(&domain.CreditCardProduct{
		ID: "p-gold", Issuer: "B-Bank", ProductName: "Gold",
		AnnualFee:    dec("120.00"),
		Rewards:      map[string]domain.RewardRate{"dining": cashback(5)},
		WelcomeBonus: &domain.WelcomeBonus{Value: 300, Type: domain.RewardCashback},
		IsActive:     true,
	})
	mem.PutProduct(&domain.CreditCardProduct{
		ID: "p-elite", Issuer: "C-Bank", ProductName: "Elite",
		Rewards:   map[string]domain.RewardRate{"dining": cashback(10)},
		MinIncome: 100000,
		IsActive:  true,
	})
	mem.PutProduct(&domain.CreditCardProduct{
		ID: "p-retired", Issuer: "D-Bank", ProductName: "Retired",
		Rewards: map[string]domain.RewardRate{"dining": cashback(9)},
	})

	e := testEngine(mem, now)

	// Annualized dining spend is 1200. Basic: 24. Gold: 60+100-120 = 40.
	// Elite (filtered by income): 120. Retired is inactive.
	got, err := e.Recommend(context.Background(), "user-1", 60000, 0)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(got))
	}
	if got[0].Product.ID != "p-gold" || got[1].Product.ID != "p-basic" {
		t.Errorf("order = [%s %s], want [p-gold p-basic]", got[0].Product.ID, got[1].Product.ID)
	}
	if !got[0].NAV.Equal(dec("40.00")) {
		t.Errorf("gold NAV = %s, want 40.00", got[0].NAV)
	}

	// Without an income, the high-requirement card qualifies and wins.
	got, err = e.Recommend(context.Background(), "user-1", 0, 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 1 || got[0].Product.ID != "p-elite" {
		t.Fatalf("got %v, want [p-elite]", got)
	}
}
