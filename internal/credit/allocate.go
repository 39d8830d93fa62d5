package credit

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
)

var (
	optimalMin    = decimal.NewFromInt(10)
	optimalMax    = decimal.NewFromInt(30)
	optimalRatio  = decimal.RequireFromString("0.30")
	centTolerance = decimal.RequireFromString("0.01")
)

// AllocationStep is one card charge in a spending plan.
type AllocationStep struct {
	CardID             string
	Issuer             string
	Product            string
	Last4              string
	AmountToCharge     decimal.Decimal
	CurrentUtilization decimal.Decimal
	NewUtilization     decimal.Decimal
	AvailableCredit    decimal.Decimal
	Reason             string
}

// AllocationPlan is the outcome of a spending optimization request.
// Infeasibility is reported through Feasible and Warnings, never as an
// error.
type AllocationPlan struct {
	Feasible             bool
	Steps                []AllocationStep
	Summary              string
	TotalAvailableCredit decimal.Decimal
	Warnings             []string
}

type allocationCard struct {
	card            *domain.Card
	creditLimit     decimal.Decimal
	currentBalance  decimal.Decimal
	availableCredit decimal.Decimal
	utilization     decimal.Decimal
}

// OptimizeSpending plans how to split a purchase of amount across the
// user's cards: lowest-utilization cards first, each charged only up
// to 30% utilization while any card still has room below it.
func (e *Engine) OptimizeSpending(ctx context.Context, userID string, amount decimal.Decimal) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("OptimizeSpending: amount must be positive, got %s", amount)
	}

	cards, err := e.store.ListActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("OptimizeSpending: listing cards for %s: %w", userID, err)
	}
	if len(cards) == 0 {
		return &AllocationPlan{
			Feasible: false,
			Steps:    []AllocationStep{},
			Summary:  "No active credit cards found",
			Warnings: []string{"You need to add at least one credit card first"},
		}, nil
	}

	infos := make([]allocationCard, 0, len(cards))
	totalAvailable := decimal.Zero
	for _, card := range cards {
		balance, err := e.CurrentBalance(ctx, card.ID)
		if err != nil {
			return nil, fmt.Errorf("OptimizeSpending: %w", err)
		}
		limit := RoundMoney(card.CreditLimit)
		available := limit.Sub(balance)
		if available.IsNegative() {
			available = decimal.Zero
		}
		util, _ := CardUtilization(limit, balance)

		infos = append(infos, allocationCard{
			card:            card,
			creditLimit:     limit,
			currentBalance:  balance,
			availableCredit: available,
			utilization:     util,
		})
		totalAvailable = totalAvailable.Add(available)
	}

	if amount.GreaterThan(totalAvailable) {
		return &AllocationPlan{
			Feasible:             false,
			Steps:                []AllocationStep{},
			Summary:              fmt.Sprintf("Insufficient credit: need $%s, have $%s available", amount.StringFixed(2), totalAvailable.StringFixed(2)),
			TotalAvailableCredit: totalAvailable,
			Warnings: []string{
				fmt.Sprintf("Total amount ($%s) exceeds available credit ($%s)", amount.StringFixed(2), totalAvailable.StringFixed(2)),
				"Consider paying down existing balances or requesting a credit limit increase",
			},
		}, nil
	}

	// Lowest utilization first; stable so ties keep input order.
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].utilization.LessThan(infos[j].utilization)
	})

	steps := []AllocationStep{}
	warnings := []string{}
	remaining := amount

	for _, info := range infos {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if info.availableCredit.LessThanOrEqual(decimal.Zero) || info.creditLimit.LessThanOrEqual(decimal.Zero) {
			continue
		}

		roomTo30 := info.creditLimit.Mul(optimalRatio).Sub(info.currentBalance)
		if roomTo30.IsNegative() {
			roomTo30 = decimal.Zero
		}

		var charge decimal.Decimal
		var reason string
		switch {
		case remaining.LessThanOrEqual(roomTo30):
			charge = remaining
			reason = "Stays within optimal utilization range (10-30%)"
		case roomTo30.IsPositive():
			charge = decimal.Min(roomTo30, info.availableCredit)
			reason = fmt.Sprintf("Charged to optimal limit (30%%), $%s remaining", remaining.Sub(charge).StringFixed(2))
		default:
			charge = decimal.Min(remaining, info.availableCredit)
			reason = "Already above optimal range, using available credit"
			warnings = append(warnings, fmt.Sprintf("%s %s is already at %s%% utilization",
				info.card.Issuer, info.card.Product, info.utilization.StringFixed(1)))
		}

		newUtil, _ := CardUtilization(info.creditLimit, info.currentBalance.Add(charge))
		steps = append(steps, AllocationStep{
			CardID:             info.card.ID,
			Issuer:             info.card.Issuer,
			Product:            info.card.Product,
			Last4:              info.card.Last4,
			AmountToCharge:     charge,
			CurrentUtilization: info.utilization,
			NewUtilization:     newUtil,
			AvailableCredit:    info.availableCredit,
			Reason:             reason,
		})
		remaining = remaining.Sub(charge)
	}

	var summary string
	if remaining.GreaterThan(centTolerance) {
		warnings = append(warnings, fmt.Sprintf("Could not allocate $%s, insufficient available credit", remaining.StringFixed(2)))
		summary = fmt.Sprintf("Partial allocation: $%s of $%s", amount.Sub(remaining).StringFixed(2), amount.StringFixed(2))
	} else {
		inOptimal := 0
		for _, s := range steps {
			if s.NewUtilization.GreaterThanOrEqual(optimalMin) && s.NewUtilization.LessThanOrEqual(optimalMax) {
				inOptimal++
			}
		}
		if inOptimal == len(steps) {
			summary = fmt.Sprintf("Optimal allocation across %d card(s), all within 10-30%% range", len(steps))
		} else {
			summary = fmt.Sprintf("Allocated across %d card(s), %d within optimal range", len(steps), inOptimal)
		}
	}

	plan := &AllocationPlan{
		Feasible:             remaining.LessThanOrEqual(centTolerance),
		Steps:                steps,
		Summary:              summary,
		TotalAvailableCredit: totalAvailable,
		Warnings:             warnings,
	}
	e.log.Info().
		Str("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Bool("feasible", plan.Feasible).
		Int("steps", len(steps)).
		Msg("spending allocation computed")
	return plan, nil
}
