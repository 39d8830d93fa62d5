package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// TransactionRow is the schema of the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID      string              `bigquery:"user_id"`      // REQUIRED
	StatementID bigquery.NullString `bigquery:"statement_id"` // NULLABLE
	AccountID   bigquery.NullString `bigquery:"account_id"`   // NULLABLE
	CardID      bigquery.NullString `bigquery:"card_id"`      // NULLABLE
	MerchantID  bigquery.NullString `bigquery:"merchant_id"`  // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Currency        string     `bigquery:"currency"`         // REQUIRED

	RawMerchant string              `bigquery:"raw_merchant"` // REQUIRED
	Category    bigquery.NullString `bigquery:"category"`     // NULLABLE
	Subcategory bigquery.NullString `bigquery:"subcategory"`  // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

const transactionColumns = `
	transaction_id, user_id, statement_id, account_id, card_id,
	merchant_id, transaction_date, amount, currency, raw_merchant,
	category, subcategory, created_ts`

func rowFromTransaction(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		StatementID:     nullString(tx.StatementID),
		AccountID:       nullString(tx.AccountID),
		CardID:          nullString(tx.CardID),
		MerchantID:      nullString(tx.MerchantID),
		TransactionDate: civil.DateOf(tx.Date),
		Amount:          ratFromDecimal(tx.Amount),
		Currency:        tx.Currency,
		RawMerchant:     tx.RawMerchant,
		Category:        nullString(tx.Category),
		Subcategory:     nullString(tx.Subcategory),
		CreatedTS:       tx.CreatedAt,
	}
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		StatementID: r.StatementID.StringVal,
		AccountID:   r.AccountID.StringVal,
		CardID:      r.CardID.StringVal,
		MerchantID:  r.MerchantID.StringVal,
		Date:        r.TransactionDate.In(time.UTC),
		Amount:      decimalFromRat(r.Amount),
		Currency:    r.Currency,
		RawMerchant: r.RawMerchant,
		Category:    r.Category.StringVal,
		Subcategory: r.Subcategory.StringVal,
		CreatedAt:   r.CreatedTS,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// FindByKey implements store.TransactionRepository.
func (s *Store) FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_date = @transaction_date
		  AND amount = @amount
		  AND raw_merchant = @raw_merchant
		LIMIT 1
	`, transactionColumns, s.table(transactionsTable))

	rows, err := s.queryTransactions(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: key.UserID},
		{Name: "transaction_date", Value: civil.DateOf(key.Date)},
		{Name: "amount", Value: ratFromDecimal(key.Amount)},
		{Name: "raw_merchant", Value: key.RawMerchant},
	})
	if err != nil {
		return nil, fmt.Errorf("FindByKey: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := s.inserter(transactionsTable).Put(ctx, rowFromTransaction(tx)); err != nil {
		return fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}
	return nil
}

// UpdateTransaction implements store.TransactionRepository. Only the
// fields the categorization engine mutates are written.
func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET merchant_id = @merchant_id,
		    category = @category,
		    subcategory = @subcategory
		WHERE transaction_id = @transaction_id
	`, s.table(transactionsTable))

	err := s.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "merchant_id", Value: tx.MerchantID},
		{Name: "category", Value: tx.Category},
		{Name: "subcategory", Value: tx.Subcategory},
		{Name: "transaction_id", Value: tx.ID},
	})
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	return nil
}

// ListUncategorized implements store.TransactionRepository.
func (s *Store) ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		  AND (category IS NULL OR category = '')
		ORDER BY transaction_date
		LIMIT @row_limit
	`, transactionColumns, s.table(transactionsTable))

	rows, err := s.queryTransactions(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "row_limit", Value: int64(limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("ListUncategorized: %w", err)
	}
	return rows, nil
}

// ListByCard implements store.TransactionRepository.
func (s *Store) ListByCard(ctx context.Context, cardID string) ([]*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE card_id = @card_id
		ORDER BY transaction_date, created_ts
	`, transactionColumns, s.table(transactionsTable))

	rows, err := s.queryTransactions(ctx, query, []bigquery.QueryParameter{
		{Name: "card_id", Value: cardID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListByCard: %w", err)
	}
	return rows, nil
}

// ListByUserSince implements store.TransactionRepository.
func (s *Store) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_date >= @since
		ORDER BY transaction_date, created_ts
	`, transactionColumns, s.table(transactionsTable))

	rows, err := s.queryTransactions(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: civil.DateOf(since)},
	})
	if err != nil {
		return nil, fmt.Errorf("ListByUserSince: %w", err)
	}
	return rows, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, params []bigquery.QueryParameter) ([]*domain.Transaction, error) {
	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var txns []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		txns = append(txns, row.toDomain())
	}
	return txns, nil
}
