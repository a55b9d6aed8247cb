// Package schema turns untyped caller input into validated customer records.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// ErrMissingColumns is returned by ValidateHeader for an incomplete batch table.
var ErrMissingColumns = errors.New("missing required columns")

// Upper bounds match the storage columns of customers and predictions.
const (
	maxTenureMonths  = 100 * 12
	maxCustomerIDLen = 64
)

var (
	maxMonthlyCharges = decimal.RequireFromString("99999999.99")   // DECIMAL(10,2)
	maxTotalCharges   = decimal.RequireFromString("9999999999.99") // DECIMAL(12,2)
)

// Validator checks presence and numeric types. Categorical domains are left to
// the encoder so both stages share one source of truth.
type Validator struct {
	required []string
}

func New() *Validator {
	req := make([]string, 0, len(model.Header)-1)
	for _, f := range model.Header {
		if f != model.FieldCustomerID {
			req = append(req, f)
		}
	}
	return &Validator{required: req}
}

// Validate returns the typed record or a *model.FieldError.
func (v *Validator) Validate(raw model.RawRecord) (model.Customer, error) {
	for _, f := range v.required {
		if blank(raw[f]) {
			return model.Customer{}, &model.FieldError{Kind: model.KindMissingField, Field: f}
		}
	}

	tenure, err := parseTenure(raw[model.FieldTenure])
	if err != nil {
		return model.Customer{}, err
	}
	monthly, err := parseBounded(model.FieldMonthlyCharges, raw[model.FieldMonthlyCharges], maxMonthlyCharges)
	if err != nil {
		return model.Customer{}, err
	}
	total, err := parseBounded(model.FieldTotalCharges, raw[model.FieldTotalCharges], maxTotalCharges)
	if err != nil {
		return model.Customer{}, err
	}

	s := func(f string) string { return strings.TrimSpace(cast.ToString(raw[f])) }

	if id := s(model.FieldCustomerID); utf8.RuneCountInString(id) > maxCustomerIDLen {
		return model.Customer{}, &model.FieldError{
			Kind:   model.KindTypeMismatch,
			Field:  model.FieldCustomerID,
			Raw:    id,
			Reason: fmt.Sprintf("longer than %d characters", maxCustomerIDLen),
		}
	}

	return model.Customer{
		ID:               s(model.FieldCustomerID),
		Gender:           s(model.FieldGender),
		SeniorCitizen:    s(model.FieldSeniorCitizen),
		Partner:          s(model.FieldPartner),
		Dependents:       s(model.FieldDependents),
		Tenure:           tenure,
		PhoneService:     s(model.FieldPhoneService),
		MultipleLines:    s(model.FieldMultipleLines),
		InternetService:  s(model.FieldInternetService),
		OnlineSecurity:   s(model.FieldOnlineSecurity),
		OnlineBackup:     s(model.FieldOnlineBackup),
		DeviceProtection: s(model.FieldDeviceProtection),
		TechSupport:      s(model.FieldTechSupport),
		StreamingTV:      s(model.FieldStreamingTV),
		StreamingMovies:  s(model.FieldStreamingMovies),
		Contract:         s(model.FieldContract),
		PaperlessBilling: s(model.FieldPaperlessBilling),
		PaymentMethod:    s(model.FieldPaymentMethod),
		MonthlyCharges:   monthly,
		TotalCharges:     total,
	}, nil
}

// ValidateHeader checks that a batch table carries every required column.
func ValidateHeader(columns []string) error {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[strings.TrimSpace(c)] = struct{}{}
	}
	var missing []string
	for _, f := range model.Header {
		if _, ok := have[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

func parseAmount(field string, v any) (decimal.Decimal, error) {
	mismatch := &model.FieldError{Kind: model.KindTypeMismatch, Field: field, Raw: fmt.Sprint(v)}

	var d decimal.Decimal
	switch x := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, mismatch
		}
		d = parsed
	case decimal.Decimal:
		d = x
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, mismatch
		}
		d = decimal.NewFromFloat(f)
	default:
		return decimal.Zero, mismatch
	}

	if d.IsNegative() {
		return decimal.Zero, mismatch
	}
	return d, nil
}

func parseBounded(field string, v any, limit decimal.Decimal) (decimal.Decimal, error) {
	d, err := parseAmount(field, v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThan(limit) {
		return decimal.Zero, &model.FieldError{
			Kind:   model.KindTypeMismatch,
			Field:  field,
			Raw:    fmt.Sprint(v),
			Reason: fmt.Sprintf("%s exceeds %s", d.String(), limit.StringFixed(2)),
		}
	}
	return d, nil
}

func parseTenure(v any) (int, error) {
	d, err := parseAmount(model.FieldTenure, v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &model.FieldError{Kind: model.KindTypeMismatch, Field: model.FieldTenure, Raw: fmt.Sprint(v)}
	}
	if d.GreaterThan(decimal.NewFromInt(maxTenureMonths)) {
		return 0, &model.FieldError{
			Kind:   model.KindTypeMismatch,
			Field:  model.FieldTenure,
			Raw:    fmt.Sprint(v),
			Reason: fmt.Sprintf("more than %d months", maxTenureMonths),
		}
	}
	return int(d.IntPart()), nil
}
