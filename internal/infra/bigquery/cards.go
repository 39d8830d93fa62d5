package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// CardRow is the schema of the cards table.
type CardRow struct {
	CardID string `bigquery:"card_id"` // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED

	Issuer  string              `bigquery:"issuer"`  // REQUIRED
	Product bigquery.NullString `bigquery:"product"` // NULLABLE
	Last4   bigquery.NullString `bigquery:"last4"`   // NULLABLE

	CreditLimit  *big.Rat           `bigquery:"credit_limit"`  // NULLABLE NUMERIC
	StatementDay bigquery.NullInt64 `bigquery:"statement_day"` // NULLABLE
	DueDay       bigquery.NullInt64 `bigquery:"due_day"`       // NULLABLE

	CurrentBalance *big.Rat `bigquery:"current_balance"` // NULLABLE NUMERIC
	IsActive       bool     `bigquery:"is_active"`
}

func (r *CardRow) toDomain() *domain.Card {
	return &domain.Card{
		ID:             r.CardID,
		UserID:         r.UserID,
		Issuer:         r.Issuer,
		Product:        r.Product.StringVal,
		Last4:          r.Last4.StringVal,
		CreditLimit:    decimalFromRat(r.CreditLimit),
		StatementDay:   int(r.StatementDay.Int64),
		DueDay:         int(r.DueDay.Int64),
		CurrentBalance: decimalFromRat(r.CurrentBalance),
		IsActive:       r.IsActive,
	}
}

const cardColumns = `
	card_id, user_id, issuer, product, last4, credit_limit,
	statement_day, due_day, current_balance, is_active`

// ListActiveCards implements store.CardRepository. Ordering matches
// the in-memory store: issuer, then product, then last4.
func (s *Store) ListActiveCards(ctx context.Context, userID string) ([]*domain.Card, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id AND is_active
		ORDER BY issuer, product, last4
	`, cardColumns, s.table(cardsTable))

	cards, err := s.queryCards(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListActiveCards: %w", err)
	}
	return cards, nil
}

// FindCardByInstitution implements store.CardRepository.
func (s *Store) FindCardByInstitution(ctx context.Context, userID, institution string) (*domain.Card, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		  AND is_active
		  AND LOWER(issuer) = LOWER(@institution)
		LIMIT 1
	`, cardColumns, s.table(cardsTable))

	cards, err := s.queryCards(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "institution", Value: institution},
	})
	if err != nil {
		return nil, fmt.Errorf("FindCardByInstitution: %w", err)
	}
	if len(cards) == 0 {
		return nil, nil
	}
	return cards[0], nil
}

func (s *Store) queryCards(ctx context.Context, query string, params []bigquery.QueryParameter) ([]*domain.Card, error) {
	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var cards []*domain.Card
	for {
		var row CardRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		cards = append(cards, row.toDomain())
	}
	return cards, nil
}

// AccountRow is the schema of the accounts table.
type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED
	UserID    string `bigquery:"user_id"`    // REQUIRED

	Institution string              `bigquery:"institution"`  // REQUIRED
	AccountType string              `bigquery:"account_type"` // REQUIRED
	Mask        bigquery.NullString `bigquery:"mask"`         // NULLABLE

	IsActive bool `bigquery:"is_active"`
}

func (r *AccountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:          r.AccountID,
		UserID:      r.UserID,
		Institution: r.Institution,
		AccountType: domain.AccountType(r.AccountType),
		Mask:        r.Mask.StringVal,
		IsActive:    r.IsActive,
	}
}

// FindAccount implements store.AccountRepository.
func (s *Store) FindAccount(ctx context.Context, userID, institution string, accountType domain.AccountType) (*domain.Account, error) {
	query := fmt.Sprintf(`
		SELECT account_id, user_id, institution, account_type, mask, is_active
		FROM %s
		WHERE user_id = @user_id
		  AND is_active
		  AND LOWER(institution) = LOWER(@institution)
		  AND account_type = @account_type
		LIMIT 1
	`, s.table(accountsTable))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "institution", Value: institution},
		{Name: "account_type", Value: string(accountType)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccount: iterating: %w", err)
	}
	return row.toDomain(), nil
}
