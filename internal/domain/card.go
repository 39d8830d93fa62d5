package domain

import "github.com/shopspring/decimal"

// Card is a credit card owned by a user. CurrentBalance is a cached,
// manually overridable figure; the credit engine derives the
// authoritative balance from the transaction ledger.
type Card struct {
	ID     string
	UserID string

	Issuer  string
	Product string
	Last4   string

	CreditLimit  decimal.Decimal
	StatementDay int // day of month, 0 when unknown
	DueDay       int // day of month, 0 when unknown

	CurrentBalance decimal.Decimal
	IsActive       bool
}

// Account is a linked bank account (checking or savings).
type Account struct {
	ID     string
	UserID string

	Institution string
	AccountType AccountType
	Mask        string // last 4 digits

	IsActive bool
}
