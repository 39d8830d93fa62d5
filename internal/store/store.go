// Package store defines the persistence interfaces consumed by the
// extraction, categorization, credit, and rewards engines, plus an
// in-memory implementation used by tests and the CLI default backend.
// A BigQuery-backed implementation lives in internal/infra/bigquery.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// ErrQuotaExceeded is returned by QuotaRepository.CheckAICalls when the
// user has used up the AI-call allowance for the current period.
var ErrQuotaExceeded = errors.New("AI call quota exceeded")

// TransactionRepository provides transaction lookup and persistence.
type TransactionRepository interface {
	// FindByKey returns the transaction matching the dedup key, or nil
	// when none exists.
	FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Transaction, error)
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListUncategorized returns up to limit transactions with no category
	// for the user, oldest first.
	ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)

	// ListByCard returns every transaction linked to the card.
	ListByCard(ctx context.Context, cardID string) ([]*domain.Transaction, error)

	// ListByUserSince returns the user's transactions dated on or after
	// the cutoff.
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error)
}

// StatementRepository persists statement parsing state.
type StatementRepository interface {
	// GetStatement returns the statement with the given ID. A missing
	// statement is an error; implementations never return (nil, nil).
	GetStatement(ctx context.Context, id string) (*domain.Statement, error)
	UpdateStatement(ctx context.Context, st *domain.Statement) error
}

// MerchantRepository provides canonical merchant lookup and upsert.
type MerchantRepository interface {
	// FindMerchantByName returns the merchant with the given canonical
	// name, or nil when none exists.
	FindMerchantByName(ctx context.Context, canonicalName string) (*domain.Merchant, error)
	InsertMerchant(ctx context.Context, m *domain.Merchant) error
	UpdateMerchant(ctx context.Context, m *domain.Merchant) error
}

// CardRepository provides card lookup for the credit engines and for
// linking parsed statements to a card.
type CardRepository interface {
	// ListActiveCards returns the user's active cards ordered by issuer,
	// then product, then last4. Spending allocation breaks utilization
	// ties in this listing order.
	ListActiveCards(ctx context.Context, userID string) ([]*domain.Card, error)
	// FindCardByInstitution returns the user's active card issued by the
	// given institution, or nil when none matches.
	FindCardByInstitution(ctx context.Context, userID, institution string) (*domain.Card, error)
}

// AccountRepository provides bank account lookup for statement linking.
type AccountRepository interface {
	// FindAccount returns the user's active account at the institution
	// with the given account type, or nil when none matches.
	FindAccount(ctx context.Context, userID, institution string, accountType domain.AccountType) (*domain.Account, error)
}

// QuotaRepository tracks AI-call usage per user per month.
type QuotaRepository interface {
	// CheckAICalls returns ErrQuotaExceeded when the user has no AI-call
	// allowance left in the current period.
	CheckAICalls(ctx context.Context, userID string) error
	IncrementAICalls(ctx context.Context, userID string, n int) error
}

// ProductRepository lists the static card product catalog.
type ProductRepository interface {
	ListActiveProducts(ctx context.Context) ([]*domain.CreditCardProduct, error)
}

// Store aggregates every repository the engines consume. The in-memory
// and BigQuery implementations both satisfy it.
type Store interface {
	TransactionRepository
	StatementRepository
	MerchantRepository
	CardRepository
	AccountRepository
	QuotaRepository
	ProductRepository
}
