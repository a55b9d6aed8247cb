package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire names of the subscriber attributes (CSV header / JSON keys).
const (
	FieldCustomerID       = "customerID"
	FieldGender           = "gender"
	FieldSeniorCitizen    = "SeniorCitizen"
	FieldPartner          = "Partner"
	FieldDependents       = "Dependents"
	FieldTenure           = "tenure"
	FieldPhoneService     = "PhoneService"
	FieldMultipleLines    = "MultipleLines"
	FieldInternetService  = "InternetService"
	FieldOnlineSecurity   = "OnlineSecurity"
	FieldOnlineBackup     = "OnlineBackup"
	FieldDeviceProtection = "DeviceProtection"
	FieldTechSupport      = "TechSupport"
	FieldStreamingTV      = "StreamingTV"
	FieldStreamingMovies  = "StreamingMovies"
	FieldContract         = "Contract"
	FieldPaperlessBilling = "PaperlessBilling"
	FieldPaymentMethod    = "PaymentMethod"
	FieldMonthlyCharges   = "MonthlyCharges"
	FieldTotalCharges     = "TotalCharges"
)

// Header is the required batch table header, in canonical order.
var Header = []string{
	FieldCustomerID, FieldGender, FieldSeniorCitizen, FieldPartner, FieldDependents,
	FieldTenure, FieldPhoneService, FieldMultipleLines, FieldInternetService,
	FieldOnlineSecurity, FieldOnlineBackup, FieldDeviceProtection, FieldTechSupport,
	FieldStreamingTV, FieldStreamingMovies, FieldContract, FieldPaperlessBilling,
	FieldPaymentMethod, FieldMonthlyCharges, FieldTotalCharges,
}

// CategoricalFields are the attributes drawn from a domain fixed at training time.
var CategoricalFields = []string{
	FieldGender, FieldSeniorCitizen, FieldPartner, FieldDependents,
	FieldPhoneService, FieldMultipleLines, FieldInternetService,
	FieldOnlineSecurity, FieldOnlineBackup, FieldDeviceProtection, FieldTechSupport,
	FieldStreamingTV, FieldStreamingMovies, FieldContract, FieldPaperlessBilling,
	FieldPaymentMethod,
}

// NumericFields are passed to the classifier as raw values.
var NumericFields = []string{FieldTenure, FieldMonthlyCharges, FieldTotalCharges}

// IsNumeric reports whether field is one of NumericFields.
func IsNumeric(field string) bool {
	for _, f := range NumericFields {
		if f == field {
			return true
		}
	}
	return false
}

// RawRecord is one subscriber as received from a caller: field name -> value.
type RawRecord map[string]any

// CustomerID returns the traceability id if the caller sent one.
func (r RawRecord) CustomerID() string {
	if v, ok := r[FieldCustomerID].(string); ok {
		return v
	}
	return ""
}

// Customer is a validated subscriber record. It is passed by value and never
// mutated after validation; a corrected record is a new Customer.
type Customer struct {
	ID               string
	Gender           string
	SeniorCitizen    string
	Partner          string
	Dependents       string
	Tenure           int
	PhoneService     string
	MultipleLines    string
	InternetService  string
	OnlineSecurity   string
	OnlineBackup     string
	DeviceProtection string
	TechSupport      string
	StreamingTV      string
	StreamingMovies  string
	Contract         string
	PaperlessBilling string
	PaymentMethod    string
	MonthlyCharges   decimal.Decimal
	TotalCharges     decimal.Decimal
}

// Category returns the categorical value stored under a wire field name.
func (c Customer) Category(field string) (string, bool) {
	switch field {
	case FieldGender:
		return c.Gender, true
	case FieldSeniorCitizen:
		return c.SeniorCitizen, true
	case FieldPartner:
		return c.Partner, true
	case FieldDependents:
		return c.Dependents, true
	case FieldPhoneService:
		return c.PhoneService, true
	case FieldMultipleLines:
		return c.MultipleLines, true
	case FieldInternetService:
		return c.InternetService, true
	case FieldOnlineSecurity:
		return c.OnlineSecurity, true
	case FieldOnlineBackup:
		return c.OnlineBackup, true
	case FieldDeviceProtection:
		return c.DeviceProtection, true
	case FieldTechSupport:
		return c.TechSupport, true
	case FieldStreamingTV:
		return c.StreamingTV, true
	case FieldStreamingMovies:
		return c.StreamingMovies, true
	case FieldContract:
		return c.Contract, true
	case FieldPaperlessBilling:
		return c.PaperlessBilling, true
	case FieldPaymentMethod:
		return c.PaymentMethod, true
	default:
		return "", false
	}
}

// Numeric returns the numeric value stored under a wire field name.
func (c Customer) Numeric(field string) (float64, bool) {
	switch field {
	case FieldTenure:
		return float64(c.Tenure), true
	case FieldMonthlyCharges:
		return c.MonthlyCharges.InexactFloat64(), true
	case FieldTotalCharges:
		return c.TotalCharges.InexactFloat64(), true
	default:
		return 0, false
	}
}

// ImportedCustomer is a row of the customers table (the subscriber base
// loaded by the import command).
type ImportedCustomer struct {
	ID              string          `json:"id" db:"id"`
	Gender          string          `json:"gender" db:"gender"`
	SeniorCitizen   string          `json:"senior_citizen" db:"senior_citizen"`
	Partner         string          `json:"partner" db:"partner"`
	Dependents      string          `json:"dependents" db:"dependents"`
	Tenure          int             `json:"tenure" db:"tenure"`
	PhoneService    string          `json:"phone_service" db:"phone_service"`
	InternetService string          `json:"internet_service" db:"internet_service"`
	Contract        string          `json:"contract" db:"contract"`
	PaperlessBill   string          `json:"paperless_billing" db:"paperless_billing"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	MonthlyCharges  decimal.Decimal `json:"monthly_charges" db:"monthly_charges"`
	TotalCharges    decimal.Decimal `json:"total_charges" db:"total_charges"`
	Churn           *string         `json:"churn" db:"churn"` // Yes|No, nullable
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
