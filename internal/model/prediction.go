package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
)

// Tier boundaries; lower bounds are inclusive.
const (
	HighThreshold   = 0.6
	MediumThreshold = 0.3
)

// LabelThreshold is the classifier's own decision boundary.
const LabelThreshold = 0.5

func (t Tier) String() string { return string(t) }

func (t Tier) Valid() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// ClassifyTier maps a churn probability to its risk tier. NaN maps to Low.
func ClassifyTier(p float64) Tier {
	switch {
	case p >= HighThreshold:
		return TierHigh
	case p >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Recommendations returns the retention playbook for the tier.
func (t Tier) Recommendations() []string {
	switch t {
	case TierHigh:
		return []string{
			"Contact this customer personally within 48 hours",
			"Offer a retention discount or upgrade incentive",
			"Schedule a satisfaction call to understand concerns",
			"Review their service usage and suggest optimizations",
		}
	case TierMedium:
		return []string{
			"Send personalized offers or service updates",
			"Track usage patterns for changes",
			"Gather feedback through surveys",
			"Consider loyalty rewards",
		}
	default:
		return []string{
			"Consider upselling additional services",
			"Send thank you messages for loyalty",
			"Invite them to referral programs",
		}
	}
}

// Prediction is the result of one inference.
type Prediction struct {
	Probability float64 `json:"probability"`
	Tier        Tier    `json:"tier"`
	Label       int     `json:"label"`
}

// NewPrediction derives tier and label from a probability.
func NewPrediction(p float64) Prediction {
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Min(1, math.Max(0, p))
	label := 0
	if p > LabelThreshold {
		label = 1
	}
	return Prediction{Probability: p, Tier: ClassifyTier(p), Label: label}
}

// Outcome is the result of one batch row: exactly one of Prediction and Err is set.
type Outcome struct {
	Row        int
	Raw        RawRecord
	Customer   Customer // zero unless Prediction != nil
	Prediction *Prediction
	Err        error
}

func (o Outcome) OK() bool { return o.Prediction != nil }

// BatchOutcome holds one Outcome per input row, in input order.
type BatchOutcome struct {
	Outcomes []Outcome
	Failed   int
}

// Successes returns the outcomes that produced a prediction.
func (b BatchOutcome) Successes() []Outcome {
	out := make([]Outcome, 0, len(b.Outcomes)-b.Failed)
	for _, o := range b.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// RowFailure is the caller-facing reason a batch row was skipped.
type RowFailure struct {
	Row        int       `json:"row"`
	CustomerID string    `json:"customer_id,omitempty"`
	Kind       ErrorKind `json:"kind,omitempty"`
	Field      string    `json:"field,omitempty"`
	Reason     string    `json:"reason"`
}

// Failures lists skipped rows with their reasons.
func (b BatchOutcome) Failures() []RowFailure {
	out := make([]RowFailure, 0, b.Failed)
	for _, o := range b.Outcomes {
		if o.OK() {
			continue
		}
		f := RowFailure{Row: o.Row, CustomerID: o.Raw.CustomerID(), Reason: o.Err.Error()}
		if fe, ok := AsFieldError(o.Err); ok {
			f.Kind = fe.Kind
			f.Field = fe.Field
		}
		out = append(out, f)
	}
	return out
}

// PredictionRow is the DB entity persisted in the predictions table.
type PredictionRow struct {
	ID              string          `json:"id" db:"id"`
	BatchID         string          `json:"batch_id" db:"batch_id"`
	CustomerID      string          `json:"customer_id" db:"customer_id"`
	Contract        string          `json:"contract" db:"contract"`
	InternetService string          `json:"internet_service" db:"internet_service"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	OnlineSecurity  string          `json:"online_security" db:"online_security"`
	TechSupport     string          `json:"tech_support" db:"tech_support"`
	Tenure          int             `json:"tenure" db:"tenure"`
	MonthlyCharges  decimal.Decimal `json:"monthly_charges" db:"monthly_charges"`
	TotalCharges    decimal.Decimal `json:"total_charges" db:"total_charges"`
	Probability     float64         `json:"probability" db:"probability"`
	Tier            Tier            `json:"tier" db:"tier"`
	Label           int             `json:"label" db:"label"`
	ModelVersion    string          `json:"model_version" db:"model_version"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// FeatureVector is the fixed-order numeric input of the classifier.
type FeatureVector []float64
