package model

import "github.com/shopspring/decimal"

// Dimension is a grouping key for segment reports.
type Dimension string

const (
	DimContract        Dimension = "contract"
	DimInternetService Dimension = "internet_service"
	DimPaymentMethod   Dimension = "payment_method"
	DimTenureGroup     Dimension = "tenure_group"
	DimOnlineSecurity  Dimension = "online_security"
	DimTechSupport     Dimension = "tech_support"
	DimTier            Dimension = "tier"
)

func (d Dimension) String() string { return string(d) }

func (d Dimension) Valid() bool {
	switch d {
	case DimContract, DimInternetService, DimPaymentMethod, DimTenureGroup,
		DimOnlineSecurity, DimTechSupport, DimTier:
		return true
	}
	return false
}

// TenureGroup buckets a tenure in months the way the retention team reports it.
func TenureGroup(months int) string {
	switch {
	case months <= 12:
		return "New (0-12 months)"
	case months <= 36:
		return "Medium (13-36 months)"
	default:
		return "Long-term (36+ months)"
	}
}

// SegmentSummary aggregates predictions sharing one dimension value.
type SegmentSummary struct {
	Key                  string          `json:"key" db:"segment"`
	Customers            int             `json:"customers" db:"customers"`
	MeanProbability      float64         `json:"mean_probability" db:"mean_probability"`
	AtRiskCustomers      int             `json:"at_risk_customers" db:"at_risk_customers"`
	MonthlyRevenueAtRisk decimal.Decimal `json:"monthly_revenue_at_risk" db:"monthly_revenue_at_risk"`
	AnnualRevenueAtRisk  decimal.Decimal `json:"annual_revenue_at_risk" db:"annual_revenue_at_risk"`
}

// TierShare is one line of the risk-segment distribution.
type TierShare struct {
	Tier      Tier    `json:"tier"`
	Customers int     `json:"customers"`
	Share     float64 `json:"share"`
}

// Distribution summarises a batch by tier.
type Distribution struct {
	Total int         `json:"total"`
	Tiers []TierShare `json:"tiers"`
}
