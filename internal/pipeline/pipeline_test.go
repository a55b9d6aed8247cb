package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/testutil"
)

func TestPredict_HighRisk(t *testing.T) {
	p := New(testutil.Bundle(t), 1)

	pred, err := p.Predict(testutil.ValidRecord())
	require.NoError(t, err)
	assert.InDelta(t, 0.65, pred.Probability, 1e-9)
	assert.Equal(t, model.TierHigh, pred.Tier)
	assert.Equal(t, 1, pred.Label)
	assert.Equal(t, testutil.Version, p.Version())
}

func TestPredict_LowRisk(t *testing.T) {
	p := New(testutil.Bundle(t), 1)

	pred, err := p.Predict(testutil.LowRiskRecord())
	require.NoError(t, err)
	assert.InDelta(t, 0.35/3, pred.Probability, 1e-9)
	assert.Equal(t, model.TierLow, pred.Tier)
	assert.Equal(t, 0, pred.Label)
}

func TestPredict_Deterministic(t *testing.T) {
	p := New(testutil.Bundle(t), 1)

	first, err := p.Predict(testutil.ValidRecord())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Predict(testutil.ValidRecord())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPredict_UnknownCategory(t *testing.T) {
	raw := testutil.ValidRecord()
	raw["InternetService"] = "Satellite"

	_, err := New(testutil.Bundle(t), 1).Predict(raw)
	fe, ok := model.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnknownCategory, fe.Kind)
	assert.Equal(t, "InternetService", fe.Field)
}

func TestPredict_MissingTenureFailsBeforeEncoding(t *testing.T) {
	raw := testutil.ValidRecord()
	delete(raw, "tenure")
	raw["InternetService"] = "Satellite"

	_, err := New(testutil.Bundle(t), 1).Predict(raw)
	fe, ok := model.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindMissingField, fe.Kind)
	assert.Equal(t, "tenure", fe.Field)
}

func TestRunBatch_Isolation(t *testing.T) {
	for _, workers := range []int{1, 4, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const n = 25
			records := make([]model.RawRecord, n)
			bad := map[int]bool{}
			for i := range records {
				r := testutil.ValidRecord()
				r["customerID"] = fmt.Sprintf("C-%02d", i)
				if i%4 == 1 {
					r["InternetService"] = "Satellite"
					bad[i] = true
				}
				records[i] = r
			}

			out, err := New(testutil.Bundle(t), workers).RunBatch(records)
			require.NoError(t, err)
			require.Len(t, out.Outcomes, n)
			assert.Equal(t, len(bad), out.Failed)
			assert.Len(t, out.Successes(), n-len(bad))

			for i, o := range out.Outcomes {
				assert.Equal(t, i, o.Row)
				assert.Equal(t, fmt.Sprintf("C-%02d", i), o.Raw.CustomerID())
				if bad[i] {
					assert.Nil(t, o.Prediction)
					fe, ok := model.AsFieldError(o.Err)
					require.True(t, ok)
					assert.Equal(t, model.KindUnknownCategory, fe.Kind)
				} else {
					require.NotNil(t, o.Prediction)
					assert.NoError(t, o.Err)
					assert.Equal(t, fmt.Sprintf("C-%02d", i), o.Customer.ID)
				}
			}
		})
	}
}

func TestRunBatch_Empty(t *testing.T) {
	out, err := New(testutil.Bundle(t), 4).RunBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, out.Outcomes)
	assert.Zero(t, out.Failed)
}

func TestRunBatch_AllFailed(t *testing.T) {
	records := []model.RawRecord{{}, {"tenure": "x"}}

	out, err := New(testutil.Bundle(t), 2).RunBatch(records)
	require.NoError(t, err)
	assert.Len(t, out.Outcomes, 2)
	assert.Equal(t, 2, out.Failed)
	assert.Empty(t, out.Successes())
}

type brokenClassifier struct{}

func (brokenClassifier) PredictProbability(model.FeatureVector) (float64, error) {
	return 0, fmt.Errorf("%w: got 19 features, model expects 20", model.ErrShapeMismatch)
}

func TestRunBatch_ConfigErrorAborts(t *testing.T) {
	b := testutil.Bundle(t)
	p := newPipeline(b.Version, b.Assembler, brokenClassifier{}, 2)

	_, err := p.RunBatch([]model.RawRecord{testutil.ValidRecord(), testutil.LowRiskRecord()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrShapeMismatch))

	_, err = p.Predict(testutil.ValidRecord())
	assert.True(t, errors.Is(err, model.ErrShapeMismatch))
}

func TestValidateThenPredictCustomer(t *testing.T) {
	p := New(testutil.Bundle(t), 1)

	c, err := p.Validate(testutil.ValidRecord())
	require.NoError(t, err)
	assert.Equal(t, 12, c.Tenure)

	pred, err := p.PredictCustomer(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, pred.Probability, 1e-9)
}
