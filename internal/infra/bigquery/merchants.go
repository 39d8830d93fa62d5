package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// MerchantRow is the schema of the merchants table. Aliases are a
// REPEATED STRING column.
type MerchantRow struct {
	MerchantID    string              `bigquery:"merchant_id"`    // REQUIRED
	CanonicalName string              `bigquery:"canonical_name"` // REQUIRED
	Aliases       []string            `bigquery:"aliases"`        // REPEATED
	Category      bigquery.NullString `bigquery:"category"`       // NULLABLE
}

func rowFromMerchant(m *domain.Merchant) *MerchantRow {
	return &MerchantRow{
		MerchantID:    m.ID,
		CanonicalName: m.CanonicalName,
		Aliases:       m.Aliases,
		Category:      nullString(m.Category),
	}
}

func (r *MerchantRow) toDomain() *domain.Merchant {
	return &domain.Merchant{
		ID:            r.MerchantID,
		CanonicalName: r.CanonicalName,
		Aliases:       r.Aliases,
		Category:      r.Category.StringVal,
	}
}

// FindMerchantByName implements store.MerchantRepository. The lookup
// is case-insensitive, matching the in-memory store.
func (s *Store) FindMerchantByName(ctx context.Context, canonicalName string) (*domain.Merchant, error) {
	query := fmt.Sprintf(`
		SELECT merchant_id, canonical_name, aliases, category
		FROM %s
		WHERE LOWER(canonical_name) = LOWER(@canonical_name)
		LIMIT 1
	`, s.table(merchantsTable))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "canonical_name", Value: canonicalName},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindMerchantByName: reading query: %w", err)
	}

	var row MerchantRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindMerchantByName: iterating: %w", err)
	}
	return row.toDomain(), nil
}

// InsertMerchant implements store.MerchantRepository.
func (s *Store) InsertMerchant(ctx context.Context, m *domain.Merchant) error {
	if err := s.inserter(merchantsTable).Put(ctx, rowFromMerchant(m)); err != nil {
		return fmt.Errorf("InsertMerchant: inserting row: %w", err)
	}
	return nil
}

// UpdateMerchant implements store.MerchantRepository. Alias accretion
// rewrites the full alias array.
func (s *Store) UpdateMerchant(ctx context.Context, m *domain.Merchant) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET canonical_name = @canonical_name,
		    aliases = @aliases,
		    category = @category
		WHERE merchant_id = @merchant_id
	`, s.table(merchantsTable))

	err := s.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "canonical_name", Value: m.CanonicalName},
		{Name: "aliases", Value: m.Aliases},
		{Name: "category", Value: m.Category},
		{Name: "merchant_id", Value: m.ID},
	})
	if err != nil {
		return fmt.Errorf("UpdateMerchant: %w", err)
	}
	return nil
}
