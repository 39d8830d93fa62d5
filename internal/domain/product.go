package domain

import "github.com/shopspring/decimal"

// RewardType distinguishes how a reward rate pays out.
type RewardType string

const (
	RewardCashback RewardType = "cashback"
	RewardPoints   RewardType = "points"
)

// RewardRate is one entry in a card product's reward table. For cashback
// the rate is a percentage (3.0 = 3%); for points it is points earned per
// dollar spent.
type RewardRate struct {
	Rate float64
	Type RewardType
}

// WelcomeBonus is a one-time signup bonus, amortized by the NAV engine.
type WelcomeBonus struct {
	Value float64
	Type  RewardType
}

// CreditCardProduct is a static catalog entry scored by the NAV engine.
type CreditCardProduct struct {
	ID          string
	Issuer      string
	ProductName string
	CardNetwork string

	AnnualFee    decimal.Decimal
	Rewards      map[string]RewardRate
	WelcomeBonus *WelcomeBonus

	// MinIncome is the personal income requirement in CAD per year;
	// zero means the issuer states no requirement.
	MinIncome int

	IsActive bool
}
