// Package bigquery implements the store repositories on BigQuery.
// Each entity lives in its own table under one dataset; row structs
// carry the schema and convert to and from the domain types. All
// methods share one client owned by the Store.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/store"
)

const (
	transactionsTable = "transactions"
	statementsTable   = "statements"
	merchantsTable    = "merchants"
	cardsTable        = "cards"
	accountsTable     = "accounts"
	quotasTable       = "ai_quotas"
	productsTable     = "card_products"
)

// Config locates the dataset all tables live in.
type Config struct {
	ProjectID string
	DatasetID string
}

// Store is the BigQuery-backed implementation of store.Store.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
	log     zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store with its own BigQuery client.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("New: bigquery client: %w", err)
	}
	return NewWithClient(client, cfg, log), nil
}

// NewWithClient creates a Store around an existing client. The caller
// keeps ownership of the client unless Close is used.
func NewWithClient(client *bigquery.Client, cfg Config, log zerolog.Logger) *Store {
	return &Store{
		client:  client,
		project: cfg.ProjectID,
		dataset: cfg.DatasetID,
		log:     log.With().Str("component", "bigquery").Logger(),
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// table returns the fully qualified `project.dataset.name` identifier.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, name)
}

func (s *Store) inserter(name string) *bigquery.Inserter {
	return s.client.DatasetInProject(s.project, s.dataset).Table(name).Inserter()
}

// runDML executes a parameterized UPDATE/MERGE/DELETE and waits for
// the job to finish.
func (s *Store) runDML(ctx context.Context, query string, params []bigquery.QueryParameter) error {
	q := s.client.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job completed with error: %w", err)
	}
	return nil
}

// ratFromDecimal converts a decimal amount to the NUMERIC wire type.
func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// decimalFromRat converts a NUMERIC value back, at 2 decimal places.
func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}

// nullDate treats the zero time as NULL.
func nullDate(t time.Time) bigquery.NullDate {
	if t.IsZero() {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
}

// nullTimestamp treats the zero time as NULL.
func nullTimestamp(t time.Time) bigquery.NullTimestamp {
	if t.IsZero() {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: t, Valid: true}
}
