// Package credit derives balances, utilization, health zones, payment
// reminders, and spending allocation plans from the transaction ledger
// and card records.
package credit

import "github.com/shopspring/decimal"

// RoundMoney rounds a monetary amount to 2 decimal places, half up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundRate rounds a percentage rate to 2 decimal places, half up.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
