package credit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReminderWindow is how many days ahead reminders look.
const DefaultReminderWindow = 7

// maxDueDay caps the due day-of-month so the computed date exists in
// every month.
const maxDueDay = 28

var (
	minPaymentRate  = decimal.RequireFromString("0.03")
	minPaymentFloor = decimal.RequireFromString("10.00")
)

// Reminder is an upcoming payment due date for one card.
type Reminder struct {
	CardID           string
	Issuer           string
	Product          string
	DueDate          time.Time
	DaysUntilDue     int
	CurrentBalance   decimal.Decimal
	MinimumPayment   decimal.Decimal
	StatementBalance decimal.Decimal
}

// PaymentReminders returns cards whose next due date falls within
// window days of today, sorted soonest first. Cards without a
// configured due day are skipped.
func (e *Engine) PaymentReminders(ctx context.Context, userID string, window int, today time.Time) ([]Reminder, error) {
	cards, err := e.store.ListActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("PaymentReminders: listing cards for %s: %w", userID, err)
	}

	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var reminders []Reminder
	for _, card := range cards {
		if card.DueDay == 0 {
			continue
		}

		due := nextDueDate(today, card.DueDay)
		daysUntil := int(due.Sub(today).Hours() / 24)
		if daysUntil < 0 || daysUntil > window {
			continue
		}

		balance, err := e.CurrentBalance(ctx, card.ID)
		if err != nil {
			return nil, fmt.Errorf("PaymentReminders: %w", err)
		}

		minimum := decimal.Zero
		if balance.IsPositive() {
			minimum = balance.Mul(minPaymentRate)
			if minimum.LessThan(minPaymentFloor) {
				minimum = minPaymentFloor
			}
		}

		reminders = append(reminders, Reminder{
			CardID:           card.ID,
			Issuer:           card.Issuer,
			Product:          card.Product,
			DueDate:          due,
			DaysUntilDue:     daysUntil,
			CurrentBalance:   balance,
			MinimumPayment:   RoundMoney(minimum),
			StatementBalance: balance,
		})
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].DaysUntilDue < reminders[j].DaysUntilDue
	})
	return reminders, nil
}

// nextDueDate finds the next occurrence of dueDay on or after today,
// capping the day at 28.
func nextDueDate(today time.Time, dueDay int) time.Time {
	if dueDay > maxDueDay {
		dueDay = maxDueDay
	}
	due := time.Date(today.Year(), today.Month(), dueDay, 0, 0, 0, 0, time.UTC)
	if due.Before(today) {
		due = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 1, dueDay-1)
	}
	return due
}
