package rewards

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// catalogFile is the YAML schema for a card product catalog.
type catalogFile struct {
	Products []catalogProduct `yaml:"products"`
}

type catalogProduct struct {
	ID           string                 `yaml:"id"`
	Issuer       string                 `yaml:"issuer"`
	ProductName  string                 `yaml:"product_name"`
	CardNetwork  string                 `yaml:"card_network"`
	AnnualFee    float64                `yaml:"annual_fee"`
	Rewards      map[string]catalogRate `yaml:"rewards"`
	WelcomeBonus *catalogBonus          `yaml:"welcome_bonus"`
	MinIncome    int                    `yaml:"min_income"`
	Active       *bool                  `yaml:"active"`
}

type catalogRate struct {
	Rate float64 `yaml:"rate"`
	Type string  `yaml:"type"`
}

type catalogBonus struct {
	Value float64 `yaml:"value"`
	Type  string  `yaml:"type"`
}

// LoadCatalog reads a YAML card product catalog from disk.
func LoadCatalog(path string) ([]*domain.CreditCardProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: %w", err)
	}
	products, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: %s: %w", path, err)
	}
	return products, nil
}

// ParseCatalog decodes a YAML card product catalog. Products with no
// id are assigned one; products omitting "active" default to active.
func ParseCatalog(data []byte) ([]*domain.CreditCardProduct, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ParseCatalog: %w", err)
	}

	products := make([]*domain.CreditCardProduct, 0, len(file.Products))
	for i, cp := range file.Products {
		if cp.Issuer == "" || cp.ProductName == "" {
			return nil, fmt.Errorf("ParseCatalog: product %d: issuer and product_name are required", i)
		}

		rewards := make(map[string]domain.RewardRate, len(cp.Rewards))
		for category, rate := range cp.Rewards {
			rt, err := rewardType(rate.Type)
			if err != nil {
				return nil, fmt.Errorf("ParseCatalog: product %q, category %q: %w", cp.ProductName, category, err)
			}
			rewards[category] = domain.RewardRate{Rate: rate.Rate, Type: rt}
		}

		var bonus *domain.WelcomeBonus
		if cp.WelcomeBonus != nil {
			bt, err := rewardType(cp.WelcomeBonus.Type)
			if err != nil {
				return nil, fmt.Errorf("ParseCatalog: product %q welcome_bonus: %w", cp.ProductName, err)
			}
			bonus = &domain.WelcomeBonus{Value: cp.WelcomeBonus.Value, Type: bt}
		}

		id := cp.ID
		if id == "" {
			id = uuid.NewString()
		}
		active := true
		if cp.Active != nil {
			active = *cp.Active
		}

		products = append(products, &domain.CreditCardProduct{
			ID:           id,
			Issuer:       cp.Issuer,
			ProductName:  cp.ProductName,
			CardNetwork:  cp.CardNetwork,
			AnnualFee:    decimal.NewFromFloat(cp.AnnualFee),
			Rewards:      rewards,
			WelcomeBonus: bonus,
			MinIncome:    cp.MinIncome,
			IsActive:     active,
		})
	}
	return products, nil
}

func rewardType(s string) (domain.RewardType, error) {
	switch domain.RewardType(s) {
	case domain.RewardCashback, domain.RewardPoints:
		return domain.RewardType(s), nil
	case "":
		return domain.RewardCashback, nil
	default:
		return "", fmt.Errorf("unknown reward type %q", s)
	}
}
