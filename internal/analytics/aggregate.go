// Package analytics rolls individual predictions up into segment reports.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// Order selects how segments are sorted.
type Order int

const (
	// ByRevenueAtRisk sorts by annual revenue at risk, descending, ties by key.
	ByRevenueAtRisk Order = iota
	// ByKey sorts by segment key.
	ByKey
)

var monthsPerYear = decimal.NewFromInt(12)

// KeyOf returns the value of dim for a scored customer.
func KeyOf(dim model.Dimension, c model.Customer, p model.Prediction) string {
	switch dim {
	case model.DimContract:
		return c.Contract
	case model.DimInternetService:
		return c.InternetService
	case model.DimPaymentMethod:
		return c.PaymentMethod
	case model.DimTenureGroup:
		return model.TenureGroup(c.Tenure)
	case model.DimOnlineSecurity:
		return c.OnlineSecurity
	case model.DimTechSupport:
		return c.TechSupport
	case model.DimTier:
		return p.Tier.String()
	default:
		return ""
	}
}

type acc struct {
	n       int
	probSum float64
	atRisk  int
	monthly decimal.Decimal
}

// Aggregate groups the successful outcomes by dim. Failed rows are ignored; no
// successes yields an empty, non-nil slice.
func Aggregate(outcomes []model.Outcome, dim model.Dimension, order Order) []model.SegmentSummary {
	groups := make(map[string]*acc)
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		key := KeyOf(dim, o.Customer, *o.Prediction)
		g, ok := groups[key]
		if !ok {
			g = &acc{monthly: decimal.Zero}
			groups[key] = g
		}
		g.n++
		g.probSum += o.Prediction.Probability
		if o.Prediction.Tier == model.TierHigh {
			g.atRisk++
			g.monthly = g.monthly.Add(o.Customer.MonthlyCharges)
		}
	}

	out := make([]model.SegmentSummary, 0, len(groups))
	for key, g := range groups {
		out = append(out, model.SegmentSummary{
			Key:                  key,
			Customers:            g.n,
			MeanProbability:      g.probSum / float64(g.n),
			AtRiskCustomers:      g.atRisk,
			MonthlyRevenueAtRisk: g.monthly,
			AnnualRevenueAtRisk:  g.monthly.Mul(monthsPerYear),
		})
	}
	Sort(out, order)
	return out
}

// Sort orders segments in place.
func Sort(s []model.SegmentSummary, order Order) {
	sort.SliceStable(s, func(i, j int) bool {
		if order == ByRevenueAtRisk {
			if c := s[i].AnnualRevenueAtRisk.Cmp(s[j].AnnualRevenueAtRisk); c != 0 {
				return c > 0
			}
		}
		return s[i].Key < s[j].Key
	})
}

// TierDistribution counts successful outcomes per tier, High first.
func TierDistribution(outcomes []model.Outcome) model.Distribution {
	counts := map[model.Tier]int{}
	total := 0
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		counts[o.Prediction.Tier]++
		total++
	}

	d := model.Distribution{Total: total, Tiers: make([]model.TierShare, 0, 3)}
	for _, t := range []model.Tier{model.TierHigh, model.TierMedium, model.TierLow} {
		ts := model.TierShare{Tier: t, Customers: counts[t]}
		if total > 0 {
			ts.Share = float64(counts[t]) / float64(total)
		}
		d.Tiers = append(d.Tiers, ts)
	}
	return d
}
