package encoder_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/encoder"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/schema"
	"github.com/jmehdipour/churn-predictor/internal/testutil"
)

func TestEncode_KnownValues(t *testing.T) {
	enc := testutil.Encoder(t)

	tests := []struct {
		field string
		raw   string
		code  int
	}{
		{"InternetService", "DSL", 0},
		{"InternetService", "Fiber optic", 1},
		{"InternetService", "No", 2},
		{"Contract", "Two year", 2},
		{"PaymentMethod", "Electronic check", 2},
		{"SeniorCitizen", "1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.raw, func(t *testing.T) {
			code, err := enc.Encode(tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)

			again, err := enc.Encode(tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, code, again)
		})
	}
}

func TestEncode_UnknownCategory(t *testing.T) {
	enc := testutil.Encoder(t)

	_, err := enc.Encode("InternetService", "Satellite")
	fe, ok := model.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnknownCategory, fe.Kind)
	assert.Equal(t, "InternetService", fe.Field)
	assert.Equal(t, "Satellite", fe.Raw)

	_, err = enc.Encode("Planet", "Mars")
	fe, ok = model.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnknownCategory, fe.Kind)
}

func TestEncode_IsCaseSensitive(t *testing.T) {
	_, err := testutil.Encoder(t).Encode("Contract", "month-to-month")
	assert.Error(t, err)
}

func TestNew_RejectsDuplicateClasses(t *testing.T) {
	_, err := encoder.New("v", map[string]encoder.Classes{"gender": {"Male", "Male"}})
	assert.Error(t, err)

	_, err = encoder.New("v", map[string]encoder.Classes{"gender": {}})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	enc, err := encoder.Load(strings.NewReader(`{"version":"v9","fields":{"gender":["Female","Male"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "v9", enc.Version())
	assert.Equal(t, []string{"gender"}, enc.Fields())
	assert.Equal(t, []string{"Female", "Male"}, enc.Domain("gender"))
	assert.Nil(t, enc.Domain("Contract"))
}

func TestAssemble_ColumnOrder(t *testing.T) {
	asm, err := encoder.NewAssembler(testutil.Features(), testutil.Encoder(t))
	require.NoError(t, err)
	assert.Equal(t, 19, asm.Width())
	assert.Equal(t, testutil.Features(), asm.Features())

	c, err := schema.New().Validate(testutil.ValidRecord())
	require.NoError(t, err)

	v, err := asm.Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureVector{
		0,     // gender Female
		0,     // SeniorCitizen 0
		1,     // Partner Yes
		0,     // Dependents No
		12,    // tenure
		0,     // PhoneService No
		1,     // MultipleLines No phone service
		0,     // InternetService DSL
		0,     // OnlineSecurity No
		2,     // OnlineBackup Yes
		0,     // DeviceProtection No
		0,     // TechSupport No
		0,     // StreamingTV No
		0,     // StreamingMovies No
		0,     // Contract Month-to-month
		1,     // PaperlessBilling Yes
		2,     // PaymentMethod Electronic check
		70.35, // MonthlyCharges
		844.2, // TotalCharges
	}, v)
}

func TestAssemble_Idempotent(t *testing.T) {
	asm, err := encoder.NewAssembler(testutil.Features(), testutil.Encoder(t))
	require.NoError(t, err)
	c, err := schema.New().Validate(testutil.ValidRecord())
	require.NoError(t, err)

	a, err := asm.Assemble(c)
	require.NoError(t, err)
	b, err := asm.Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssemble_UnknownCategory(t *testing.T) {
	asm, err := encoder.NewAssembler(testutil.Features(), testutil.Encoder(t))
	require.NoError(t, err)

	raw := testutil.ValidRecord()
	raw["InternetService"] = "Satellite"
	c, err := schema.New().Validate(raw)
	require.NoError(t, err)

	_, err = asm.Assemble(c)
	fe, ok := model.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnknownCategory, fe.Kind)
	assert.Equal(t, "InternetService", fe.Field)
}

func TestNewAssembler_Mismatch(t *testing.T) {
	enc := testutil.Encoder(t)
	full := testutil.Features()

	tests := []struct {
		name     string
		features []string
	}{
		{"empty", nil},
		{"missing encoder field", full[1:]},
		{"missing numeric field", full[:len(full)-1]},
		{"duplicate", append(append([]string{}, full...), "gender")},
		{"unknown column", append(append([]string{}, full...), "Churn")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encoder.NewAssembler(tt.features, enc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, encoder.ErrFeatureMismatch))
		})
	}
}
