// Package rewards derives an annualized spending profile from the
// transaction ledger and scores credit card products against it by
// net annual value (annual rewards plus amortized welcome bonus minus
// annual fee).
package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/credit"
	"github.com/creditsphere/creditsphere/internal/store"
)

// DefaultProfileMonths is the trailing window used to build a spending
// profile when the caller does not specify one.
const DefaultProfileMonths = 12

// Engine computes spending profiles and product valuations.
type Engine struct {
	store store.Store
	log   zerolog.Logger

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewEngine builds a rewards engine on the given store.
func NewEngine(st store.Store, log zerolog.Logger) *Engine {
	return &Engine{
		store: st,
		log:   log.With().Str("component", "rewards").Logger(),
		now:   time.Now,
	}
}

// SpendingProfile sums the user's outflows (negative amounts, taken as
// absolute values) over the trailing window, grouped by lowercased
// category, and annualizes each bucket by 12/months. Transactions with
// no category fall into the "default" bucket, which is always present
// even when zero.
func (e *Engine) SpendingProfile(ctx context.Context, userID string, months int) (map[string]decimal.Decimal, error) {
	if months <= 0 {
		months = DefaultProfileMonths
	}

	since := e.now().UTC().AddDate(0, 0, -months*30)
	txns, err := e.store.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("SpendingProfile: list transactions: %w", err)
	}

	totals := map[string]decimal.Decimal{"default": decimal.Zero}
	for _, tx := range txns {
		if tx.Amount.GreaterThanOrEqual(decimal.Zero) {
			continue // payments and deposits are not spending
		}
		key := strings.ToLower(strings.TrimSpace(tx.Category))
		if key == "" {
			key = "default"
		}
		totals[key] = totals[key].Add(tx.Amount.Neg())
	}

	factor := decimal.NewFromInt(12).Div(decimal.NewFromInt(int64(months)))
	profile := make(map[string]decimal.Decimal, len(totals))
	for key, total := range totals {
		profile[key] = credit.RoundMoney(total.Mul(factor))
	}

	e.log.Debug().
		Str("user_id", userID).
		Int("months", months).
		Int("categories", len(profile)).
		Msg("built spending profile")
	return profile, nil
}
