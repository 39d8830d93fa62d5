// Package extract turns uploaded statement files into canonical
// transactions. Each source format has its own extractor producing the
// same candidate shape; the Pipeline dispatches on source type,
// identifies the issuing bank where the format allows it, deduplicates
// against existing records, and commits.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/store"
)

// Categorizer assigns merchants and categories to freshly inserted
// transactions. Implemented by the categorization engine.
type Categorizer interface {
	CategorizeBatch(ctx context.Context, userID string, txns []*domain.Transaction) error
}

// Options tune a single statement parse.
type Options struct {
	// ColumnMapping overrides CSV header auto-detection. Keys are the
	// canonical field names (date, description, amount, currency),
	// values are the file's header names.
	ColumnMapping map[string]string

	// DefaultYear fills in yearless statement dates. Zero means the
	// current year.
	DefaultYear int
}

// Pipeline is the statement extraction orchestrator. All collaborators
// are injected; the zero value is not usable.
type Pipeline struct {
	store       store.Store
	csv         *CSVExtractor
	pdf         *PDFExtractor
	image       *ImageExtractor
	categorizer Categorizer
	log         zerolog.Logger
}

// NewPipeline wires an extraction pipeline. categorizer may be nil, in
// which case transactions are committed uncategorized.
func NewPipeline(st store.Store, categorizer Categorizer, ocr OCRRunner, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:       st,
		csv:         NewCSVExtractor(log),
		pdf:         NewPDFExtractor(log),
		image:       NewImageExtractor(ocr, log),
		categorizer: categorizer,
		log:         log,
	}
}

// ProcessStatement parses the statement with the given ID from the
// local file at path and returns the number of transactions created.
//
// Failure before any insert marks the statement unparsed and creates
// nothing. Once transactions have been committed, a later failure does
// not retract them; the statement stays unparsed and the error
// propagates. Duplicate candidates are detected by a read-then-insert
// check, so reprocessing the same file is idempotent.
func (p *Pipeline) ProcessStatement(ctx context.Context, statementID, path string, opts Options) (int, error) {
	st, err := p.store.GetStatement(ctx, statementID)
	if err != nil {
		return 0, fmt.Errorf("ProcessStatement: loading statement %s: %w", statementID, err)
	}
	if st == nil {
		return 0, fmt.Errorf("ProcessStatement: statement not found: %s", statementID)
	}

	log := p.log.With().
		Str("statement_id", st.ID).
		Str("user_id", st.UserID).
		Str("source_type", string(st.SourceType)).
		Logger()

	defaultYear := opts.DefaultYear
	if defaultYear == 0 {
		defaultYear = time.Now().Year()
	}

	// 1. Dispatch to the extractor for the source type.
	result, err := p.runExtractor(st, path, opts.ColumnMapping, defaultYear)
	if err != nil {
		p.markFailed(ctx, st, err)
		return 0, fmt.Errorf("ProcessStatement: statement %s: %w", statementID, err)
	}

	// 2. For formats with full text, read bank markers. Failure to
	// identify is not an error; fields stay empty.
	if result.Text != "" {
		id := IdentifyBank(result.Text, log)
		if st.Institution == "" {
			st.Institution = id.Institution
		}
		if st.AccountType == "" {
			st.AccountType = id.AccountType
		}
		if st.AccountNumber == "" {
			st.AccountNumber = id.AccountNumber
		}
	}

	// 3. Zero matched rows is a successful parse.
	if len(result.Candidates) == 0 {
		st.Parsed = true
		st.ParseError = ""
		st.TransactionCount = 0
		st.ParsedAt = time.Now().UTC()
		if err := p.store.UpdateStatement(ctx, st); err != nil {
			return 0, fmt.Errorf("ProcessStatement: updating statement %s: %w", statementID, err)
		}
		log.Info().Msg("statement parsed with no transactions")
		return 0, nil
	}

	// 4. Resolve the account or card this statement belongs to.
	accountID, cardID := p.resolveAccount(ctx, st, log)

	// 5. Insert candidates, skipping duplicates.
	inserted, periodStart, periodEnd, err := p.commitCandidates(ctx, st, result.Candidates, accountID, cardID)
	if err != nil {
		p.markFailed(ctx, st, err)
		return len(inserted), fmt.Errorf("ProcessStatement: statement %s: %w", statementID, err)
	}

	// 6. Categorize exactly the new transactions. Inserted rows stay
	// committed even if this fails.
	if p.categorizer != nil && len(inserted) > 0 {
		if err := p.categorizer.CategorizeBatch(ctx, st.UserID, inserted); err != nil {
			p.markFailed(ctx, st, err)
			return len(inserted), fmt.Errorf("ProcessStatement: categorizing statement %s: %w", statementID, err)
		}
	}

	// 7. Stamp the statement period and mark it parsed.
	st.PeriodStart = periodStart
	st.PeriodEnd = periodEnd
	st.Parsed = true
	st.ParseError = ""
	st.TransactionCount = len(inserted)
	st.ParsedAt = time.Now().UTC()
	if err := p.store.UpdateStatement(ctx, st); err != nil {
		return len(inserted), fmt.Errorf("ProcessStatement: updating statement %s: %w", statementID, err)
	}

	log.Info().
		Int("candidates", len(result.Candidates)).
		Int("inserted", len(inserted)).
		Str("institution", st.Institution).
		Msg("statement parsed")
	return len(inserted), nil
}

// Reparse resets a statement and runs the pipeline over it again.
// Previously inserted transactions are kept; the dedup check prevents
// duplicates.
func (p *Pipeline) Reparse(ctx context.Context, statementID, path string, opts Options) (int, error) {
	st, err := p.store.GetStatement(ctx, statementID)
	if err != nil {
		return 0, fmt.Errorf("Reparse: loading statement %s: %w", statementID, err)
	}
	if st == nil {
		return 0, fmt.Errorf("Reparse: statement not found: %s", statementID)
	}
	st.Parsed = false
	st.ParseError = ""
	if err := p.store.UpdateStatement(ctx, st); err != nil {
		return 0, fmt.Errorf("Reparse: resetting statement %s: %w", statementID, err)
	}
	return p.ProcessStatement(ctx, statementID, path, opts)
}

func (p *Pipeline) runExtractor(st *domain.Statement, path string, mapping map[string]string, defaultYear int) (Result, error) {
	switch st.SourceType {
	case domain.SourceCSV:
		candidates, err := p.csv.Extract(path, mapping)
		if err != nil {
			return Result{}, err
		}
		return Result{Candidates: candidates}, nil
	case domain.SourcePDF:
		return p.pdf.Extract(path, defaultYear)
	case domain.SourceImage:
		return p.image.Extract(path, defaultYear)
	default:
		return Result{}, fmt.Errorf("source type %q: %w", st.SourceType, ErrUnsupportedFormat)
	}
}

// resolveAccount links the statement to an existing card or account by
// institution and account type. Absence of a match is not an error.
func (p *Pipeline) resolveAccount(ctx context.Context, st *domain.Statement, log zerolog.Logger) (accountID, cardID string) {
	if st.Institution == "" {
		return "", ""
	}

	if st.AccountType == domain.AccountCreditCard {
		card, err := p.store.FindCardByInstitution(ctx, st.UserID, st.Institution)
		if err != nil {
			log.Warn().Err(err).Str("institution", st.Institution).Msg("card lookup failed")
			return "", ""
		}
		if card != nil {
			return "", card.ID
		}
		return "", ""
	}

	account, err := p.store.FindAccount(ctx, st.UserID, st.Institution, st.AccountType)
	if err != nil {
		log.Warn().Err(err).Str("institution", st.Institution).Msg("account lookup failed")
		return "", ""
	}
	if account != nil {
		return account.ID, ""
	}
	return "", ""
}

// commitCandidates inserts candidates that do not already exist and
// returns the new transactions plus the min/max candidate dates.
func (p *Pipeline) commitCandidates(ctx context.Context, st *domain.Statement, candidates []Candidate, accountID, cardID string) (inserted []*domain.Transaction, periodStart, periodEnd time.Time, err error) {
	for _, c := range candidates {
		if periodStart.IsZero() || c.Date.Before(periodStart) {
			periodStart = c.Date
		}
		if periodEnd.IsZero() || c.Date.After(periodEnd) {
			periodEnd = c.Date
		}

		key := domain.DedupKey{
			UserID:      st.UserID,
			Date:        c.Date,
			Amount:      c.Amount,
			RawMerchant: c.Description,
		}
		existing, err := p.store.FindByKey(ctx, key)
		if err != nil {
			return inserted, periodStart, periodEnd, fmt.Errorf("commitCandidates: duplicate check: %w", err)
		}
		if existing != nil {
			p.log.Debug().
				Str("raw_merchant", c.Description).
				Str("date", c.Date.Format("2006-01-02")).
				Msg("skipping duplicate transaction")
			continue
		}

		tx := &domain.Transaction{
			ID:          uuid.NewString(),
			UserID:      st.UserID,
			StatementID: st.ID,
			AccountID:   accountID,
			CardID:      cardID,
			Date:        c.Date,
			Amount:      c.Amount,
			Currency:    c.Currency,
			RawMerchant: c.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := p.store.InsertTransaction(ctx, tx); err != nil {
			return inserted, periodStart, periodEnd, fmt.Errorf("commitCandidates: inserting transaction: %w", err)
		}
		inserted = append(inserted, tx)
	}
	return inserted, periodStart, periodEnd, nil
}

// markFailed records a parse failure on the statement. The update is
// best-effort; the original error is what propagates.
func (p *Pipeline) markFailed(ctx context.Context, st *domain.Statement, cause error) {
	st.Parsed = false
	st.ParseError = cause.Error()
	if err := p.store.UpdateStatement(ctx, st); err != nil {
		p.log.Error().Err(err).Str("statement_id", st.ID).Msg("failed to record parse failure")
	}
}
