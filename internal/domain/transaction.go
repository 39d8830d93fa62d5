package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one normalized transaction extracted from a
// statement. Amounts are signed: negative for money OUT (charges,
// withdrawals), positive for money IN (payments, deposits).
type Transaction struct {
	ID     string
	UserID string

	StatementID string
	AccountID   string
	CardID      string
	MerchantID  string

	Date     time.Time
	Amount   decimal.Decimal
	Currency string

	RawMerchant string
	Category    string // empty until categorized
	Subcategory string

	CreatedAt time.Time
}

// DedupKey identifies a transaction for duplicate suppression. Two
// candidates with the same key are considered the same transaction.
type DedupKey struct {
	UserID      string
	Date        time.Time
	Amount      decimal.Decimal
	RawMerchant string
}

// Key returns the dedup key for this transaction.
func (t *Transaction) Key() DedupKey {
	return DedupKey{
		UserID:      t.UserID,
		Date:        t.Date,
		Amount:      t.Amount,
		RawMerchant: t.RawMerchant,
	}
}

// Equal reports whether two dedup keys match. Amounts are compared by
// value, not by decimal representation.
func (k DedupKey) Equal(other DedupKey) bool {
	return k.UserID == other.UserID &&
		k.Date.Equal(other.Date) &&
		k.Amount.Equal(other.Amount) &&
		k.RawMerchant == other.RawMerchant
}
