package extract

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// columnAliases maps each canonical field to the header names it may
// appear under, after normalization (lower-case, underscores to
// spaces). First alias match wins.
var columnAliases = map[string][]string{
	"date":        {"date", "transaction date", "posted date", "trans date", "post date"},
	"description": {"description", "merchant", "payee", "memo", "details", "transaction description"},
	"amount":      {"amount", "transaction amount", "debit", "credit", "value", "trans amount"},
	"currency":    {"currency", "ccy", "curr"},
}

// outflowAmountAliases are amount-column headers whose values represent
// money out. Positive values under these headers are negated so the
// signed-amount convention (negative = outflow) holds.
var outflowAmountAliases = map[string]bool{"debit": true}

// CSVExtractor parses delimited statement exports. Banks disagree on
// delimiters and header names, so both are detected per file unless the
// caller supplies an explicit column mapping.
type CSVExtractor struct {
	log zerolog.Logger
}

// NewCSVExtractor creates a CSV extractor logging through log.
func NewCSVExtractor(log zerolog.Logger) *CSVExtractor {
	return &CSVExtractor{log: log}
}

// DetectDelimiter picks the delimiter by scanning the first line for
// comma, semicolon, tab, and pipe; first match wins, comma is the
// default.
func DetectDelimiter(firstLine string) rune {
	for _, d := range []rune{',', ';', '\t', '|'} {
		if strings.ContainsRune(firstLine, d) {
			return d
		}
	}
	return ','
}

// normalizeColumnName lower-cases a header and folds underscores to
// spaces so "Transaction_Date" and "transaction date" compare equal.
func normalizeColumnName(col string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(col), "_", " "))
}

// resolveColumns maps canonical field names to header indices. The
// returned alias map remembers which alias matched the amount column so
// sign handling can tell debit columns from signed-amount columns.
func resolveColumns(header []string, mapping map[string]string) (cols map[string]int, matched map[string]string, err error) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[normalizeColumnName(h)] = i
	}

	cols = make(map[string]int)
	matched = make(map[string]string)

	if len(mapping) > 0 {
		// Caller-supplied mapping is used verbatim.
		for field, colName := range mapping {
			if idx, ok := normalized[normalizeColumnName(colName)]; ok {
				cols[field] = idx
				matched[field] = normalizeColumnName(colName)
			}
		}
	} else {
		for field, aliases := range columnAliases {
			for _, alias := range aliases {
				if idx, ok := normalized[alias]; ok {
					cols[field] = idx
					matched[field] = alias
					break
				}
			}
		}
	}

	if _, ok := cols["date"]; !ok {
		return nil, nil, fmt.Errorf("resolveColumns: header %v: %w", header, ErrMissingRequiredColumns)
	}
	if _, ok := cols["amount"]; !ok {
		return nil, nil, fmt.Errorf("resolveColumns: header %v: %w", header, ErrMissingRequiredColumns)
	}
	return cols, matched, nil
}

// Extract parses the CSV file at path into candidates. Rows whose date
// or amount cannot be parsed are skipped, never failing the file.
func (e *CSVExtractor) Extract(path string, mapping map[string]string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Extract: opening %s: %v: %w", path, err, ErrExtractionFailed)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// Strip a UTF-8 BOM if present.
	if bom, _ := br.Peek(3); len(bom) == 3 && bom[0] == 0xef && bom[1] == 0xbb && bom[2] == 0xbf {
		br.Discard(3)
	}

	firstLine, err := br.Peek(4096)
	if err != nil && len(firstLine) == 0 {
		return nil, fmt.Errorf("Extract: reading %s: %w", path, ErrExtractionFailed)
	}
	delim := DetectDelimiter(firstLineOf(string(firstLine)))

	r := csv.NewReader(br)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Extract: reading CSV %s: %v: %w", path, err, ErrExtractionFailed)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	cols, matchedAliases, err := resolveColumns(header, mapping)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("path", path).
		Str("delimiter", string(delim)).
		Int("rows", len(records)-1).
		Msg("parsing CSV statement")

	amountFromOutflowColumn := outflowAmountAliases[matchedAliases["amount"]]

	var candidates []Candidate
	for _, row := range records[1:] {
		if rowEmpty(row) {
			continue
		}

		date, ok := ParseDate(cell(row, cols["date"]))
		if !ok {
			e.log.Debug().Strs("row", row).Msg("skipping row with unparseable date")
			continue
		}
		amount, ok := ParseAmount(cell(row, cols["amount"]))
		if !ok {
			e.log.Debug().Strs("row", row).Msg("skipping row with unparseable amount")
			continue
		}
		if amountFromOutflowColumn && amount.IsPositive() {
			amount = amount.Neg()
		}

		description := ""
		if idx, ok := cols["description"]; ok {
			description = strings.TrimSpace(cell(row, idx))
		}
		currency := DefaultCurrency
		if idx, ok := cols["currency"]; ok {
			if c := strings.ToUpper(strings.TrimSpace(cell(row, idx))); c != "" {
				currency = c
			}
		}

		candidates = append(candidates, Candidate{
			Date:        date,
			Amount:      amount,
			Description: description,
			Currency:    currency,
			Raw:         map[string]string{"row": strings.Join(row, string(delim))},
		})
	}

	e.log.Info().Str("path", path).Int("candidates", len(candidates)).Msg("parsed CSV statement")
	return candidates, nil
}

func firstLineOf(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
