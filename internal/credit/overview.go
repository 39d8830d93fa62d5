package credit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/store"
)

// HealthStatus classifies a utilization rate.
type HealthStatus string

const (
	HealthUnderutilized HealthStatus = "underutilized"
	HealthOptimal       HealthStatus = "optimal"
	HealthElevated      HealthStatus = "elevated"
	HealthHigh          HealthStatus = "high"
	HealthNA            HealthStatus = "n_a"
)

var (
	pct10  = decimal.NewFromInt(10)
	pct30  = decimal.NewFromInt(30)
	pct50  = decimal.NewFromInt(50)
	pct100 = decimal.NewFromInt(100)
)

// UtilizationHealth maps a utilization percentage to its health zone.
// Boundaries are inclusive on the low side of each zone: exactly 30.00
// is optimal, exactly 50.00 is elevated.
func UtilizationHealth(rate decimal.Decimal) HealthStatus {
	switch {
	case rate.LessThan(pct10):
		return HealthUnderutilized
	case rate.LessThanOrEqual(pct30):
		return HealthOptimal
	case rate.LessThanOrEqual(pct50):
		return HealthElevated
	default:
		return HealthHigh
	}
}

// CardUtilization computes the utilization rate and health for one
// card. A zero or absent limit yields n_a; a zero balance on a real
// limit is underutilized.
func CardUtilization(creditLimit, balance decimal.Decimal) (decimal.Decimal, HealthStatus) {
	if creditLimit.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, HealthNA
	}
	if balance.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, HealthUnderutilized
	}
	rate := RoundRate(balance.Div(creditLimit).Mul(pct100))
	return rate, UtilizationHealth(rate)
}

// CardSummary is the per-card slice of a credit overview.
type CardSummary struct {
	CardID          string
	Issuer          string
	Product         string
	Last4           string
	CreditLimit     decimal.Decimal
	CurrentBalance  decimal.Decimal
	UtilizationRate decimal.Decimal
	HealthStatus    HealthStatus
}

// Overview aggregates credit posture across all active cards.
type Overview struct {
	TotalCreditLimit   decimal.Decimal
	TotalUsed          decimal.Decimal
	OverallUtilization decimal.Decimal
	HealthStatus       HealthStatus
	Cards              []CardSummary
}

// Engine computes credit state from the ledger.
type Engine struct {
	store store.Store
	log   zerolog.Logger
}

// NewEngine wires a credit engine.
func NewEngine(st store.Store, log zerolog.Logger) *Engine {
	return &Engine{store: st, log: log}
}

// CurrentBalance derives a card's outstanding balance from its ledger:
// charges (absolute value of negatives) minus payments (positives),
// floored at zero so overpayment reads as a zero balance.
func (e *Engine) CurrentBalance(ctx context.Context, cardID string) (decimal.Decimal, error) {
	txns, err := e.store.ListByCard(ctx, cardID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("CurrentBalance: card %s: %w", cardID, err)
	}
	return balanceFromLedger(txns), nil
}

func balanceFromLedger(txns []*domain.Transaction) decimal.Decimal {
	charges := decimal.Zero
	payments := decimal.Zero
	for _, tx := range txns {
		if tx.Amount.IsNegative() {
			charges = charges.Add(tx.Amount.Abs())
		} else {
			payments = payments.Add(tx.Amount)
		}
	}
	balance := charges.Sub(payments)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return RoundMoney(balance)
}

// Overview builds the complete credit overview for a user. A user with
// no active cards gets an all-zero overview with n_a health, never an
// error.
func (e *Engine) Overview(ctx context.Context, userID string) (*Overview, error) {
	cards, err := e.store.ListActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Overview: listing cards for %s: %w", userID, err)
	}

	ov := &Overview{
		TotalCreditLimit: decimal.Zero,
		TotalUsed:        decimal.Zero,
		HealthStatus:     HealthNA,
		Cards:            []CardSummary{},
	}
	if len(cards) == 0 {
		return ov, nil
	}

	for _, card := range cards {
		balance, err := e.CurrentBalance(ctx, card.ID)
		if err != nil {
			return nil, fmt.Errorf("Overview: %w", err)
		}
		limit := RoundMoney(card.CreditLimit)
		rate, health := CardUtilization(limit, balance)

		ov.Cards = append(ov.Cards, CardSummary{
			CardID:          card.ID,
			Issuer:          card.Issuer,
			Product:         card.Product,
			Last4:           card.Last4,
			CreditLimit:     limit,
			CurrentBalance:  balance,
			UtilizationRate: rate,
			HealthStatus:    health,
		})
		ov.TotalCreditLimit = ov.TotalCreditLimit.Add(limit)
		ov.TotalUsed = ov.TotalUsed.Add(balance)
	}

	if ov.TotalCreditLimit.IsPositive() {
		ov.OverallUtilization = RoundRate(ov.TotalUsed.Div(ov.TotalCreditLimit).Mul(pct100))
		ov.HealthStatus = UtilizationHealth(ov.OverallUtilization)
	}
	return ov, nil
}

// CardSummary builds the summary for one card owned by the user.
// Returns nil when the card is missing or inactive.
func (e *Engine) CardSummary(ctx context.Context, userID, cardID string) (*CardSummary, error) {
	cards, err := e.store.ListActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("CardSummary: %w", err)
	}
	for _, card := range cards {
		if card.ID != cardID {
			continue
		}
		balance, err := e.CurrentBalance(ctx, card.ID)
		if err != nil {
			return nil, fmt.Errorf("CardSummary: %w", err)
		}
		limit := RoundMoney(card.CreditLimit)
		rate, health := CardUtilization(limit, balance)
		return &CardSummary{
			CardID:          card.ID,
			Issuer:          card.Issuer,
			Product:         card.Product,
			Last4:           card.Last4,
			CreditLimit:     limit,
			CurrentBalance:  balance,
			UtilizationRate: rate,
			HealthStatus:    health,
		}, nil
	}
	return nil, nil
}
