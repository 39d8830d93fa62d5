package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// ProductRow is the schema of the card_products catalog table. The
// reward table and welcome bonus are stored as JSON strings; the
// catalog is small and read whole, never queried by reward category.
type ProductRow struct {
	ProductID   string              `bigquery:"product_id"`   // REQUIRED
	Issuer      string              `bigquery:"issuer"`       // REQUIRED
	ProductName string              `bigquery:"product_name"` // REQUIRED
	CardNetwork bigquery.NullString `bigquery:"card_network"` // NULLABLE

	AnnualFee    *big.Rat            `bigquery:"annual_fee"`    // NULLABLE NUMERIC
	RewardsJSON  bigquery.NullString `bigquery:"rewards"`       // NULLABLE JSON text
	WelcomeBonus bigquery.NullString `bigquery:"welcome_bonus"` // NULLABLE JSON text

	MinIncome bigquery.NullInt64 `bigquery:"min_income"` // NULLABLE
	IsActive  bool               `bigquery:"is_active"`
}

type rewardRateJSON struct {
	Rate float64 `json:"rate"`
	Type string  `json:"type"`
}

type welcomeBonusJSON struct {
	Value float64 `json:"value"`
	Type  string  `json:"type"`
}

func (r *ProductRow) toDomain() (*domain.CreditCardProduct, error) {
	p := &domain.CreditCardProduct{
		ID:          r.ProductID,
		Issuer:      r.Issuer,
		ProductName: r.ProductName,
		CardNetwork: r.CardNetwork.StringVal,
		AnnualFee:   decimalFromRat(r.AnnualFee),
		Rewards:     map[string]domain.RewardRate{},
		MinIncome:   int(r.MinIncome.Int64),
		IsActive:    r.IsActive,
	}

	if r.RewardsJSON.Valid && r.RewardsJSON.StringVal != "" {
		var rewards map[string]rewardRateJSON
		if err := json.Unmarshal([]byte(r.RewardsJSON.StringVal), &rewards); err != nil {
			return nil, fmt.Errorf("product %s: rewards: %w", r.ProductID, err)
		}
		for category, rate := range rewards {
			p.Rewards[category] = domain.RewardRate{
				Rate: rate.Rate,
				Type: domain.RewardType(rate.Type),
			}
		}
	}

	if r.WelcomeBonus.Valid && r.WelcomeBonus.StringVal != "" {
		var bonus welcomeBonusJSON
		if err := json.Unmarshal([]byte(r.WelcomeBonus.StringVal), &bonus); err != nil {
			return nil, fmt.Errorf("product %s: welcome_bonus: %w", r.ProductID, err)
		}
		p.WelcomeBonus = &domain.WelcomeBonus{
			Value: bonus.Value,
			Type:  domain.RewardType(bonus.Type),
		}
	}
	return p, nil
}

// ListActiveProducts implements store.ProductRepository.
func (s *Store) ListActiveProducts(ctx context.Context) ([]*domain.CreditCardProduct, error) {
	query := fmt.Sprintf(`
		SELECT
			product_id, issuer, product_name, card_network, annual_fee,
			rewards, welcome_bonus, min_income, is_active
		FROM %s
		WHERE is_active
		ORDER BY issuer, product_name
	`, s.table(productsTable))

	q := s.client.Query(query)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveProducts: reading query: %w", err)
	}

	var products []*domain.CreditCardProduct
	for {
		var row ProductRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveProducts: iterating: %w", err)
		}
		p, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListActiveProducts: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
