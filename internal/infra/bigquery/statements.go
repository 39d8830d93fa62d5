package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// StatementRow is the schema of the statements table.
type StatementRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED
	UserID      string `bigquery:"user_id"`      // REQUIRED
	SourceType  string `bigquery:"source_type"`  // REQUIRED
	FilePath    string `bigquery:"file_path"`    // REQUIRED

	Parsed     bool                `bigquery:"parsed"`
	ParseError bigquery.NullString `bigquery:"parse_error"` // NULLABLE

	Institution   bigquery.NullString `bigquery:"institution"`    // NULLABLE
	AccountType   bigquery.NullString `bigquery:"account_type"`   // NULLABLE
	AccountNumber bigquery.NullString `bigquery:"account_number"` // NULLABLE

	PeriodStart bigquery.NullDate `bigquery:"period_start"` // NULLABLE
	PeriodEnd   bigquery.NullDate `bigquery:"period_end"`   // NULLABLE

	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	ParsedTS  bigquery.NullTimestamp `bigquery:"parsed_ts"`  // NULLABLE
}

func (r *StatementRow) toDomain() *domain.Statement {
	st := &domain.Statement{
		ID:               r.StatementID,
		UserID:           r.UserID,
		SourceType:       domain.SourceType(r.SourceType),
		FilePath:         r.FilePath,
		Parsed:           r.Parsed,
		ParseError:       r.ParseError.StringVal,
		Institution:      r.Institution.StringVal,
		AccountType:      domain.AccountType(r.AccountType.StringVal),
		AccountNumber:    r.AccountNumber.StringVal,
		TransactionCount: int(r.TransactionCount.Int64),
		CreatedAt:        r.CreatedTS,
	}
	if r.PeriodStart.Valid {
		st.PeriodStart = r.PeriodStart.Date.In(time.UTC)
	}
	if r.PeriodEnd.Valid {
		st.PeriodEnd = r.PeriodEnd.Date.In(time.UTC)
	}
	if r.ParsedTS.Valid {
		st.ParsedAt = r.ParsedTS.Timestamp
	}
	return st
}

func rowFromStatement(st *domain.Statement) *StatementRow {
	return &StatementRow{
		StatementID:      st.ID,
		UserID:           st.UserID,
		SourceType:       string(st.SourceType),
		FilePath:         st.FilePath,
		Parsed:           st.Parsed,
		ParseError:       nullString(st.ParseError),
		Institution:      nullString(st.Institution),
		AccountType:      nullString(string(st.AccountType)),
		AccountNumber:    nullString(st.AccountNumber),
		PeriodStart:      nullDate(st.PeriodStart),
		PeriodEnd:        nullDate(st.PeriodEnd),
		TransactionCount: bigquery.NullInt64{Int64: int64(st.TransactionCount), Valid: true},
		CreatedTS:        st.CreatedAt,
		ParsedTS:         nullTimestamp(st.ParsedAt),
	}
}

// InsertStatement records a freshly uploaded statement.
func (s *Store) InsertStatement(ctx context.Context, st *domain.Statement) error {
	if err := s.inserter(statementsTable).Put(ctx, rowFromStatement(st)); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// GetStatement implements store.StatementRepository.
func (s *Store) GetStatement(ctx context.Context, id string) (*domain.Statement, error) {
	query := fmt.Sprintf(`
		SELECT
			statement_id, user_id, source_type, file_path, parsed,
			parse_error, institution, account_type, account_number,
			period_start, period_end, transaction_count, created_ts,
			parsed_ts
		FROM %s
		WHERE statement_id = @statement_id
		LIMIT 1
	`, s.table(statementsTable))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: reading query: %w", err)
	}

	var row StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetStatement: statement not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatement: iterating: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateStatement implements store.StatementRepository. Everything the
// pipeline mutates after upload is written back.
func (s *Store) UpdateStatement(ctx context.Context, st *domain.Statement) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parsed = @parsed,
		    parse_error = @parse_error,
		    institution = @institution,
		    account_type = @account_type,
		    account_number = @account_number,
		    period_start = @period_start,
		    period_end = @period_end,
		    transaction_count = @transaction_count,
		    parsed_ts = @parsed_ts
		WHERE statement_id = @statement_id
	`, s.table(statementsTable))

	err := s.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "parsed", Value: st.Parsed},
		{Name: "parse_error", Value: st.ParseError},
		{Name: "institution", Value: st.Institution},
		{Name: "account_type", Value: string(st.AccountType)},
		{Name: "account_number", Value: st.AccountNumber},
		{Name: "period_start", Value: nullDate(st.PeriodStart)},
		{Name: "period_end", Value: nullDate(st.PeriodEnd)},
		{Name: "transaction_count", Value: int64(st.TransactionCount)},
		{Name: "parsed_ts", Value: nullTimestamp(st.ParsedAt)},
		{Name: "statement_id", Value: st.ID},
	})
	if err != nil {
		return fmt.Errorf("UpdateStatement: %w", err)
	}
	return nil
}
