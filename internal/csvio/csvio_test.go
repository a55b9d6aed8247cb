package csvio_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/csvio"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/schema"
)

const header = "customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges"

const table = header + ",Churn\n" +
	"7590-VHVEG,Female,0,Yes,No,1,No,No phone service,DSL,No,Yes,No,No,No,No,Month-to-month,Yes,Electronic check,29.85,29.85,No\n" +
	"5575-GNVDE,Male,0,No,No,34,Yes,No,DSL,Yes,No,Yes,No,No,No,One year,No,Mailed check,56.95,1889.5,No\n"

func TestReadRecords(t *testing.T) {
	records, err := csvio.ReadRecords(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "7590-VHVEG", records[0].CustomerID())
	assert.Equal(t, "1", records[0][model.FieldTenure])
	assert.Equal(t, "One year", records[1][model.FieldContract])
	assert.NotContains(t, records[1], "Churn")
}

func TestReadRecords_ByteOrderMark(t *testing.T) {
	records, err := csvio.ReadRecords(strings.NewReader("\ufeff" + table))
	require.NoError(t, err)
	assert.Equal(t, "7590-VHVEG", records[0].CustomerID())
}

func TestReadRecords_HeaderOnly(t *testing.T) {
	records, err := csvio.ReadRecords(strings.NewReader(header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecords_Empty(t *testing.T) {
	_, err := csvio.ReadRecords(strings.NewReader(""))
	assert.ErrorIs(t, err, csvio.ErrEmptyTable)
}

func TestReadRecords_MissingColumn(t *testing.T) {
	in := strings.Replace(table, "tenure,", "months,", 1)

	_, err := csvio.ReadRecords(strings.NewReader(in))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrMissingColumns))
	assert.Contains(t, err.Error(), "tenure")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "65.0%", csvio.FormatPercent(0.65))
	assert.Equal(t, "0.0%", csvio.FormatPercent(0))
	assert.Equal(t, "100.0%", csvio.FormatPercent(1))
	assert.Equal(t, "11.7%", csvio.FormatPercent(0.1167))
}

func TestWriteResults(t *testing.T) {
	rows, err := csvio.ReadRows(strings.NewReader(table))
	require.NoError(t, err)

	high := model.NewPrediction(0.72)
	out := model.BatchOutcome{
		Outcomes: []model.Outcome{
			{Row: 0, Prediction: &high},
			{Row: 1, Err: &model.FieldError{Kind: model.KindMissingField, Field: "tenure"}},
		},
		Failed: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, csvio.WriteResults(&buf, csvio.ResultRows(rows, out)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "Churn_Risk,Churn_Probability,Prediction,Error"))
	assert.True(t, strings.HasSuffix(lines[1], "High Risk,72.0%,Likely to Churn,"))
	assert.Contains(t, lines[2], `missing field ""tenure""`)
}

func TestRowsFromRecords(t *testing.T) {
	rows := csvio.RowsFromRecords([]model.RawRecord{{
		model.FieldCustomerID: "A-1",
		model.FieldTenure:     float64(12),
		model.FieldContract:   "Two year",
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "A-1", rows[0].CustomerID)
	assert.Equal(t, "12", rows[0].Tenure)
	assert.Equal(t, "Two year", rows[0].Contract)
	assert.Empty(t, rows[0].TotalCharges)
}
