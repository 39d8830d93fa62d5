package extract

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is one raw transaction produced by a format extractor,
// before dedup and persistence. Amounts are signed: negative = outflow.
type Candidate struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Currency    string

	// Raw keeps positional context for debugging: the CSV row, the PDF
	// table cells, or the OCR line the candidate came from.
	Raw map[string]string
}

// Result is what an extractor hands back to the pipeline. Text carries
// the full document text for bank identification where the format
// provides one (PDF, OCR); it is empty for CSV.
type Result struct {
	Candidates []Candidate
	Text       string
}
