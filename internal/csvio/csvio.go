// Package csvio reads subscriber tables and writes scored result tables.
package csvio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/schema"
)

var ErrEmptyTable = errors.New("empty CSV table")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one line of a subscriber table. Churn is only present in historical
// exports and is ignored by scoring.
type Row struct {
	CustomerID       string `csv:"customerID"`
	Gender           string `csv:"gender"`
	SeniorCitizen    string `csv:"SeniorCitizen"`
	Partner          string `csv:"Partner"`
	Dependents       string `csv:"Dependents"`
	Tenure           string `csv:"tenure"`
	PhoneService     string `csv:"PhoneService"`
	MultipleLines    string `csv:"MultipleLines"`
	InternetService  string `csv:"InternetService"`
	OnlineSecurity   string `csv:"OnlineSecurity"`
	OnlineBackup     string `csv:"OnlineBackup"`
	DeviceProtection string `csv:"DeviceProtection"`
	TechSupport      string `csv:"TechSupport"`
	StreamingTV      string `csv:"StreamingTV"`
	StreamingMovies  string `csv:"StreamingMovies"`
	Contract         string `csv:"Contract"`
	PaperlessBilling string `csv:"PaperlessBilling"`
	PaymentMethod    string `csv:"PaymentMethod"`
	MonthlyCharges   string `csv:"MonthlyCharges"`
	TotalCharges     string `csv:"TotalCharges"`
	Churn            string `csv:"Churn,omitempty"`
}

// Record converts the row into the caller-facing record shape.
func (r Row) Record() model.RawRecord {
	return model.RawRecord{
		model.FieldCustomerID:       r.CustomerID,
		model.FieldGender:           r.Gender,
		model.FieldSeniorCitizen:    r.SeniorCitizen,
		model.FieldPartner:          r.Partner,
		model.FieldDependents:       r.Dependents,
		model.FieldTenure:           r.Tenure,
		model.FieldPhoneService:     r.PhoneService,
		model.FieldMultipleLines:    r.MultipleLines,
		model.FieldInternetService:  r.InternetService,
		model.FieldOnlineSecurity:   r.OnlineSecurity,
		model.FieldOnlineBackup:     r.OnlineBackup,
		model.FieldDeviceProtection: r.DeviceProtection,
		model.FieldTechSupport:      r.TechSupport,
		model.FieldStreamingTV:      r.StreamingTV,
		model.FieldStreamingMovies:  r.StreamingMovies,
		model.FieldContract:         r.Contract,
		model.FieldPaperlessBilling: r.PaperlessBilling,
		model.FieldPaymentMethod:    r.PaymentMethod,
		model.FieldMonthlyCharges:   r.MonthlyCharges,
		model.FieldTotalCharges:     r.TotalCharges,
	}
}

// ReadRows parses a subscriber table after checking its header carries every
// required column. Extra columns are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := schema.ValidateHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// ReadRecords is ReadRows converted to records.
func ReadRecords(r io.Reader) ([]model.RawRecord, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	out := make([]model.RawRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

// ResultRow is an input row augmented with the prediction columns.
type ResultRow struct {
	Row
	ChurnRisk        string `csv:"Churn_Risk"`
	ChurnProbability string `csv:"Churn_Probability"`
	Prediction       string `csv:"Prediction"`
	Error            string `csv:"Error"`
}

// ResultRows maps every outcome back onto its input row. Failed rows keep
// their input columns and carry the reason in Error.
func ResultRows(rows []Row, out model.BatchOutcome) []ResultRow {
	res := make([]ResultRow, len(out.Outcomes))
	for i, o := range out.Outcomes {
		res[i].Row = rows[o.Row]
		if !o.OK() {
			res[i].Error = o.Err.Error()
			continue
		}
		p := o.Prediction
		res[i].ChurnRisk = p.Tier.String() + " Risk"
		res[i].ChurnProbability = FormatPercent(p.Probability)
		res[i].Prediction = "Likely to Stay"
		if p.Label == 1 {
			res[i].Prediction = "Likely to Churn"
		}
	}
	return res
}

// FormatPercent renders a probability as a one-decimal percentage.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// WriteResults writes the augmented table.
func WriteResults(w io.Writer, rows []ResultRow) error {
	return gocsv.Marshal(&rows, w)
}

// RowsFromRecords recovers table rows from JSON records so JSON and CSV
// batches share one output shape.
func RowsFromRecords(records []model.RawRecord) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		s := func(f string) string {
			if v, ok := r[f]; ok && v != nil {
				return fmt.Sprint(v)
			}
			return ""
		}
		rows[i] = Row{
			CustomerID:       s(model.FieldCustomerID),
			Gender:           s(model.FieldGender),
			SeniorCitizen:    s(model.FieldSeniorCitizen),
			Partner:          s(model.FieldPartner),
			Dependents:       s(model.FieldDependents),
			Tenure:           s(model.FieldTenure),
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
			MonthlyCharges:   s(model.FieldMonthlyCharges),
			TotalCharges:     s(model.FieldTotalCharges),
		}
	}
	return rows
}
