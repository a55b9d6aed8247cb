// Package testutil provides fixtures shared by package tests: a valid
// subscriber record and a small, hand-built model bundle whose predictions are
// easy to compute by hand.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/encoder"
	"github.com/jmehdipour/churn-predictor/internal/forest"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

const Version = "test-2024.1"

// ValidRecord scores (0.85 + 0.3 + 0.8) / 3 = 0.65 on Forest: High, label 1.
func ValidRecord() model.RawRecord {
	return model.RawRecord{
		"customerID":       "7590-VHVEG",
		"gender":           "Female",
		"SeniorCitizen":    "0",
		"Partner":          "Yes",
		"Dependents":       "No",
		"tenure":           "12",
		"PhoneService":     "No",
		"MultipleLines":    "No phone service",
		"InternetService":  "DSL",
		"OnlineSecurity":   "No",
		"OnlineBackup":     "Yes",
		"DeviceProtection": "No",
		"TechSupport":      "No",
		"StreamingTV":      "No",
		"StreamingMovies":  "No",
		"Contract":         "Month-to-month",
		"PaperlessBilling": "Yes",
		"PaymentMethod":    "Electronic check",
		"MonthlyCharges":   "70.35",
		"TotalCharges":     "844.2",
	}
}

// LowRiskRecord scores (0.1 + 0.05 + 0.2) / 3 ≈ 0.1167 on Forest: Low, label 0.
func LowRiskRecord() model.RawRecord {
	r := ValidRecord()
	r["customerID"] = "5575-GNVDE"
	r["tenure"] = "34"
	r["InternetService"] = "No"
	r["OnlineSecurity"] = "No internet service"
	r["OnlineBackup"] = "No internet service"
	r["DeviceProtection"] = "No internet service"
	r["TechSupport"] = "No internet service"
	r["StreamingTV"] = "No internet service"
	r["StreamingMovies"] = "No internet service"
	r["Contract"] = "Two year"
	r["PaymentMethod"] = "Credit card (automatic)"
	r["MonthlyCharges"] = "20.15"
	r["TotalCharges"] = "685.1"
	return r
}

// Features is the training column order of the test bundle.
func Features() []string {
	return []string{
		"gender", "SeniorCitizen", "Partner", "Dependents", "tenure",
		"PhoneService", "MultipleLines", "InternetService", "OnlineSecurity",
		"OnlineBackup", "DeviceProtection", "TechSupport", "StreamingTV",
		"StreamingMovies", "Contract", "PaperlessBilling", "PaymentMethod",
		"MonthlyCharges", "TotalCharges",
	}
}

// EncoderFields returns label-encoder class lists (sorted, as at training).
func EncoderFields() map[string]encoder.Classes {
	yesNo := encoder.Classes{"No", "Yes"}
	addOn := encoder.Classes{"No", "No internet service", "Yes"}
	return map[string]encoder.Classes{
		"gender":           {"Female", "Male"},
		"SeniorCitizen":    {"0", "1"},
		"Partner":          yesNo,
		"Dependents":       yesNo,
		"PhoneService":     yesNo,
		"MultipleLines":    {"No", "No phone service", "Yes"},
		"InternetService":  {"DSL", "Fiber optic", "No"},
		"OnlineSecurity":   addOn,
		"OnlineBackup":     addOn,
		"DeviceProtection": addOn,
		"TechSupport":      addOn,
		"StreamingTV":      addOn,
		"StreamingMovies":  addOn,
		"Contract":         {"Month-to-month", "One year", "Two year"},
		"PaperlessBilling": yesNo,
		"PaymentMethod": {
			"Bank transfer (automatic)", "Credit card (automatic)",
			"Electronic check", "Mailed check",
		},
	}
}

// Forest is a three-tree forest over Features:
//
//	contract/tenure:  month-to-month & tenure<=12 -> .85, month-to-month -> .55, else .10
//	internet service: DSL -> .30, fiber -> .70, none -> .05
//	payment/charges:  automatic -> .20, monthly<=70 -> .40, else .80
func Forest() *forest.Forest {
	const (
		tenure   = 4
		internet = 7
		contract = 14
		payment  = 16
		monthly  = 17
	)
	return &forest.Forest{
		Version: Version,
		Width:   19,
		Trees: []forest.Tree{
			{
				Nodes: []forest.Node{
					{Feature: contract, Threshold: 0.5, Left: 1, Right: 2, RightIsLeaf: true},
					{Feature: tenure, Threshold: 12, Left: 0, LeftIsLeaf: true, Right: 1, RightIsLeaf: true},
				},
				Leaves: []float64{0.85, 0.55, 0.10},
			},
			{
				Nodes: []forest.Node{
					{Feature: internet, Threshold: 1.5, Left: 1, Right: 2, RightIsLeaf: true},
					{Feature: internet, Threshold: 0.5, Left: 0, LeftIsLeaf: true, Right: 1, RightIsLeaf: true},
				},
				Leaves: []float64{0.30, 0.70, 0.05},
			},
			{
				Nodes: []forest.Node{
					{Feature: payment, Threshold: 1.5, Left: 0, LeftIsLeaf: true, Right: 1},
					{Feature: monthly, Threshold: 70, Left: 1, LeftIsLeaf: true, Right: 2, RightIsLeaf: true},
				},
				Leaves: []float64{0.20, 0.40, 0.80},
			},
		},
	}
}

// Encoder builds the test encoder.
func Encoder(t testing.TB) *encoder.Encoder {
	t.Helper()
	enc, err := encoder.New(Version, EncoderFields())
	require.NoError(t, err)
	return enc
}

// Bundle builds a consistent in-memory bundle.
func Bundle(t testing.TB) *artifact.Bundle {
	t.Helper()
	b, err := artifact.NewBundle(Forest(), Encoder(t),
		encoder.FeatureList{Version: Version, Features: Features()})
	require.NoError(t, err)
	return b
}

// WriteArtifacts writes the test bundle into dir in its on-disk form.
func WriteArtifacts(t testing.TB, dir string) {
	t.Helper()
	write := func(name string, v any) {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
	}
	write(artifact.ModelFile, Forest())
	write(artifact.EncodersFile, encoder.Artifact{Version: Version, Fields: EncoderFields()})
	write(artifact.FeaturesFile, encoder.FeatureList{Version: Version, Features: Features()})
}
