package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/csvio"
)

func TestToImported(t *testing.T) {
	table := "customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges,Churn\n" +
		"7590-VHVEG,Female,0,Yes,No,1,No,No phone service,DSL,No,Yes,No,No,No,No,Month-to-month,Yes,Electronic check,29.85,29.85,No\n" +
		"4472-LVYGI,Female,0,Yes,Yes,0,No,No phone service,DSL,Yes,No,Yes,Yes,Yes,No,Two year,Yes,Bank transfer (automatic),52.55, ,No\n" +
		",Male,0,No,No,2,Yes,No,DSL,Yes,Yes,No,No,No,No,Month-to-month,Yes,Mailed check,53.85,108.15,Yes\n" +
		"3668-QPYBK,Male,0,No,No,2,Yes,No,DSL,Yes,Yes,No,No,No,No,Month-to-month,Yes,Mailed check,53.85,108.15,Yes\n"

	rows, err := csvio.ReadRows(strings.NewReader(table))
	require.NoError(t, err)

	got, skipped := toImported(rows)

	require.Len(t, got, 2)
	assert.Equal(t, "7590-VHVEG", got[0].ID)
	assert.Equal(t, "29.85", got[0].MonthlyCharges.String())
	require.NotNil(t, got[0].Churn)
	assert.Equal(t, "No", *got[0].Churn)
	assert.Equal(t, "3668-QPYBK", got[1].ID)
	assert.Equal(t, "Yes", *got[1].Churn)

	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Row)
	assert.Contains(t, skipped[0].Reason, "TotalCharges")
	assert.Equal(t, 2, skipped[1].Row)
	assert.Equal(t, "missing customerID", skipped[1].Reason)
}
