package domain

import "time"

// SourceType identifies the format of an uploaded statement file.
type SourceType string

const (
	SourceCSV   SourceType = "csv"
	SourcePDF   SourceType = "pdf"
	SourceImage SourceType = "image"
)

// AccountType classifies the account a statement belongs to.
type AccountType string

const (
	AccountCreditCard AccountType = "credit_card"
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
)

// Statement is an uploaded statement file and its parsing state.
// Parsed stays false until the extraction pipeline completes; a parse
// failure after transactions were inserted leaves those transactions in
// place with Parsed=false, so re-invoking the pipeline is safe (dedup
// suppresses the rows already created).
type Statement struct {
	ID         string
	UserID     string
	SourceType SourceType
	FilePath   string

	Parsed     bool
	ParseError string

	// Populated by the bank identifier; any of these may stay empty when
	// identification misses.
	Institution   string
	AccountType   AccountType
	AccountNumber string // masked, typically last 4 digits

	PeriodStart time.Time
	PeriodEnd   time.Time

	TransactionCount int

	CreatedAt time.Time
	ParsedAt  time.Time
}
