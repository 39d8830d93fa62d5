package extract

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls transaction candidates out of text-based PDF
// statements. Extraction runs in two stages: reconstruct text lines
// from positioned glyphs, then match the lines against known statement
// line shapes.
type PDFExtractor struct {
	log zerolog.Logger
}

// NewPDFExtractor creates a PDF extractor logging through log.
func NewPDFExtractor(log zerolog.Logger) *PDFExtractor {
	return &PDFExtractor{log: log}
}

// outflowKeywords mark checking-account lines as money out when the
// statement prints unsigned amounts.
var outflowKeywords = []string{
	"TRANSFER TO", "WITHDRAWAL", "DEBIT", "PAYMENT", "PURCHASE",
	"FEE", "SERVICE CHARGE", "BILL PAY",
}

// inflowKeywords mark checking-account lines as money in.
var inflowKeywords = []string{
	"DEPOSIT", "TRANSFER FROM", "CREDIT", "REFUND", "PAYROLL", "INTEREST",
}

var (
	// Credit-card statements print a transaction date and a posting
	// date followed by the description and the amount.
	creditCardLine = regexp.MustCompile(`(?i)^([A-Za-z]{3}\s+\d{1,2})\s+[A-Za-z]{3}\s+\d{1,2}\s+(.+?)\s+(-?\(?\$?[\d,]+\.\d{2}\)?)\s*$`)

	// Checking statements print a date, description, the transaction
	// amount and a running balance.
	checkingLine = regexp.MustCompile(`(?i)^([A-Za-z]{3}\s+\d{1,2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{2}-\d{2})\s+(.+?)\s+(-?\(?\$?[\d,]+\.\d{2}\)?)\s+(-?\(?\$?[\d,]+\.\d{2}\)?)\s*$`)
)

// headerKeywords flag lines that are table headers or totals, not
// transactions.
var headerKeywords = []string{
	"opening balance", "closing balance", "balance forward", "total",
	"date description", "trans date", "transaction details",
	"statement period", "page ",
}

func isHeaderLine(line string) bool {
	l := strings.ToLower(line)
	for _, kw := range headerKeywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	u := strings.ToUpper(s)
	for _, kw := range keywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return false
}

// Extract parses the PDF at path. defaultYear fills in yearless dates
// the way statements print them. The returned Result carries the full
// document text so the caller can identify the issuing bank.
func (e *PDFExtractor) Extract(path string, defaultYear int) (Result, error) {
	text, err := extractPDFText(path)
	if err != nil {
		return Result{}, fmt.Errorf("Extract: %s: %v: %w", path, err, ErrExtractionFailed)
	}

	candidates := e.parseLines(text, defaultYear)
	e.log.Info().Str("path", path).Int("candidates", len(candidates)).Msg("parsed PDF statement")
	return Result{Candidates: candidates, Text: text}, nil
}

// parseLines matches each text line against the known statement line
// shapes, falling back to a loose date+amount scan for layouts the
// shapes miss.
func (e *PDFExtractor) parseLines(text string, defaultYear int) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeaderLine(line) {
			continue
		}

		if c, ok := parseCheckingLine(line, defaultYear); ok {
			candidates = append(candidates, c)
			continue
		}
		if c, ok := parseCreditCardLine(line, defaultYear); ok {
			candidates = append(candidates, c)
			continue
		}
		if c, ok := parseLooseLine(line, defaultYear); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// parseCheckingLine handles date/description/amount/balance rows. The
// amount column is unsigned, so direction comes from the description
// keywords; amounts with no keyword stay money in.
func parseCheckingLine(line string, defaultYear int) (Candidate, bool) {
	m := checkingLine.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}
	date, ok := ParseDateWithDefaultYear(m[1], defaultYear)
	if !ok {
		return Candidate{}, false
	}
	amount, ok := ParseAmount(m[3])
	if !ok {
		return Candidate{}, false
	}
	description := strings.TrimSpace(m[2])

	if amount.IsPositive() && !containsAny(description, inflowKeywords) &&
		containsAny(description, outflowKeywords) {
		amount = amount.Neg()
	}

	return Candidate{
		Date:        date,
		Amount:      amount,
		Description: description,
		Currency:    DefaultCurrency,
		Raw:         map[string]string{"line": line},
	}, true
}

// parseCreditCardLine handles two-date purchase rows. Purchases are
// money out, so positive amounts are negated; payment lines stay
// positive.
func parseCreditCardLine(line string, defaultYear int) (Candidate, bool) {
	m := creditCardLine.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}
	date, ok := ParseDateWithDefaultYear(m[1], defaultYear)
	if !ok {
		return Candidate{}, false
	}
	amount, ok := ParseAmount(m[3])
	if !ok {
		return Candidate{}, false
	}
	description := strings.TrimSpace(m[2])

	if amount.IsPositive() && !containsAny(description, []string{"PAYMENT", "CREDIT", "REFUND"}) {
		amount = amount.Neg()
	}

	return Candidate{
		Date:        date,
		Amount:      amount,
		Description: description,
		Currency:    DefaultCurrency,
		Raw:         map[string]string{"line": line},
	}, true
}

// parseLooseLine is the last-chance scan: any line carrying both a
// recognizable date and amount becomes a candidate, with the
// description being whatever sits between them.
func parseLooseLine(line string, defaultYear int) (Candidate, bool) {
	date, ok := FindDate(line, defaultYear)
	if !ok {
		return Candidate{}, false
	}
	amount, ok := FindAmount(line)
	if !ok {
		return Candidate{}, false
	}
	description := stripDateAndAmount(line)
	if description == "" {
		return Candidate{}, false
	}
	if amount.IsPositive() && containsAny(description, outflowKeywords) {
		amount = amount.Neg()
	}
	return Candidate{
		Date:        date,
		Amount:      amount,
		Description: description,
		Currency:    DefaultCurrency,
		Raw:         map[string]string{"line": line},
	}, true
}

var looseStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(?-?\$?[\d,]+\.\d{2}\)?`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}(?:/\d{2,4})?`),
	regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:,?\s+\d{4})?`),
}

func stripDateAndAmount(line string) string {
	for _, p := range looseStripPatterns {
		line = p.ReplaceAllString(line, " ")
	}
	return strings.Join(strings.Fields(line), " ")
}

// extractPDFText reconstructs the document text from positioned
// glyphs, grouping them into rows by Y coordinate and ordering each
// row left to right. Falls back to the library's row extraction when
// no positioned content is available.
func extractPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	if _, statErr := os.Stat(path); statErr != nil {
		return "", statErr
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("document has no pages")
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if pageText := pageTextByPosition(page); pageText != "" {
			pages = append(pages, pageText)
			continue
		}
		if pageText := pageTextByRow(page); pageText != "" {
			pages = append(pages, pageText)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no text content extracted")
	}
	return strings.Join(pages, "\n"), nil
}

// pageTextByPosition clusters glyphs into rows on their Y coordinate.
// PDF Y grows bottom to top, so rows sort descending.
func pageTextByPosition(page pdf.Page) string {
	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	type glyph struct {
		x float64
		s string
	}
	rows := make(map[int][]glyph)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], glyph{x: t.X, s: t.S})
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		items := rows[y]
		sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })

		var b strings.Builder
		var prevX float64
		for j, it := range items {
			if j > 0 && it.x-prevX > 15 {
				b.WriteString("  ")
			}
			b.WriteString(it.s)
			prevX = it.x
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pageTextByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ParseStatementText runs the line parser over already-extracted text.
// OCR output goes through the same line shapes as PDF text.
func (e *PDFExtractor) ParseStatementText(text string, defaultYear int) []Candidate {
	return e.parseLines(text, defaultYear)
}
