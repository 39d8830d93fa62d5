package rewards

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/credit"
	"github.com/creditsphere/creditsphere/internal/domain"
)

const (
	// DefaultBonusYears amortizes a one-time welcome bonus over the
	// typical card-holding period.
	DefaultBonusYears = 3

	// DefaultRecommendLimit caps the recommendation list.
	DefaultRecommendLimit = 10
)

// pointsToCAD converts reward points to dollars: 100 points = $1.
var pointsToCAD = decimal.NewFromFloat(0.01)

// Valuation is the NAV breakdown for one card product.
type Valuation struct {
	Product *domain.CreditCardProduct

	AnnualRewards decimal.Decimal
	BonusValue    decimal.Decimal
	AnnualFee     decimal.Decimal
	NAV           decimal.Decimal
}

// matchRewardRate resolves the reward-rate entry for a spending
// category. Fallback order: exact name, singular/plural variants,
// underscore/space swaps, then the table's "default" entry.
func matchRewardRate(rewards map[string]domain.RewardRate, category string) (domain.RewardRate, bool) {
	candidates := []string{
		category,
		strings.TrimSuffix(category, "s"),
		category + "s",
		strings.ReplaceAll(category, "_", " "),
		strings.ReplaceAll(category, " ", "_"),
		"default",
	}
	for _, name := range candidates {
		if rate, ok := rewards[name]; ok {
			return rate, true
		}
	}
	return domain.RewardRate{}, false
}

// CardRewards computes the expected annual rewards for a product
// against a spending profile. Cashback rates are percentages; points
// rates are points per dollar, converted at 100 points per dollar.
func CardRewards(product *domain.CreditCardProduct, profile map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for category, spending := range profile {
		if spending.LessThanOrEqual(decimal.Zero) {
			continue
		}
		rate, ok := matchRewardRate(product.Rewards, category)
		if !ok {
			continue
		}
		r := decimal.NewFromFloat(rate.Rate)
		switch rate.Type {
		case domain.RewardPoints:
			total = total.Add(spending.Mul(r).Mul(pointsToCAD))
		default:
			total = total.Add(spending.Mul(r).Div(decimal.NewFromInt(100)))
		}
	}
	return credit.RoundMoney(total)
}

// WelcomeBonusValue converts a welcome bonus to an annual dollar
// figure, amortized over the given number of years. Point bonuses are
// converted at 100 points per dollar; cash bonuses are taken at face
// value.
func WelcomeBonusValue(bonus *domain.WelcomeBonus, years int) decimal.Decimal {
	if bonus == nil || bonus.Value <= 0 {
		return decimal.Zero
	}
	if years <= 0 {
		years = DefaultBonusYears
	}
	value := decimal.NewFromFloat(bonus.Value)
	if bonus.Type == domain.RewardPoints {
		value = value.Mul(pointsToCAD)
	}
	return credit.RoundMoney(value.Div(decimal.NewFromInt(int64(years))))
}

// Valuate scores one product against a spending profile. Each
// component is rounded to 2 decimals before the final sum.
func Valuate(product *domain.CreditCardProduct, profile map[string]decimal.Decimal, bonusYears int) Valuation {
	rewards := CardRewards(product, profile)
	bonus := WelcomeBonusValue(product.WelcomeBonus, bonusYears)
	fee := credit.RoundMoney(product.AnnualFee)

	return Valuation{
		Product:       product,
		AnnualRewards: rewards,
		BonusValue:    bonus,
		AnnualFee:     fee,
		NAV:           rewards.Add(bonus).Sub(fee),
	}
}

// Recommend scores every active catalog product against the user's
// trailing-12-month spending profile and returns the top candidates by
// NAV, best first. A positive income filters out products whose stated
// minimum income exceeds it; products with no stated requirement
// always pass. A non-positive limit falls back to the default.
func (e *Engine) Recommend(ctx context.Context, userID string, income int, limit int) ([]Valuation, error) {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	profile, err := e.SpendingProfile(ctx, userID, DefaultProfileMonths)
	if err != nil {
		return nil, fmt.Errorf("Recommend: %w", err)
	}

	products, err := e.store.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Recommend: list products: %w", err)
	}

	valuations := make([]Valuation, 0, len(products))
	for _, p := range products {
		if income > 0 && p.MinIncome > 0 && income < p.MinIncome {
			continue
		}
		valuations = append(valuations, Valuate(p, profile, DefaultBonusYears))
	}

	sort.SliceStable(valuations, func(i, j int) bool {
		return valuations[i].NAV.GreaterThan(valuations[j].NAV)
	})
	if len(valuations) > limit {
		valuations = valuations[:limit]
	}

	e.log.Info().
		Str("user_id", userID).
		Int("candidates", len(products)).
		Int("recommended", len(valuations)).
		Msg("scored card products")
	return valuations, nil
}
