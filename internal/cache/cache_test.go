package cache_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jmehdipour/churn-predictor/internal/cache"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

func customer() model.Customer {
	return model.Customer{
		ID:             "7590-VHVEG",
		Gender:         "Female",
		Tenure:         12,
		Contract:       "Month-to-month",
		MonthlyCharges: decimal.RequireFromString("70.35"),
		TotalCharges:   decimal.RequireFromString("844.2"),
	}
}

func TestKey(t *testing.T) {
	base := cache.Key("p:", "v1", customer())

	assert.True(t, strings.HasPrefix(base, "p:v1:"))
	assert.Equal(t, base, cache.Key("p:", "v1", customer()), "deterministic")

	other := customer()
	other.ID = "5575-GNVDE"
	assert.Equal(t, base, cache.Key("p:", "v1", other), "id does not affect the key")

	other = customer()
	other.Tenure = 13
	assert.NotEqual(t, base, cache.Key("p:", "v1", other))

	assert.NotEqual(t, base, cache.Key("p:", "v2", customer()), "new model version invalidates")
}

func TestNilCacheIsDisabled(t *testing.T) {
	var p *cache.Predictions
	assert.Nil(t, cache.New(nil, "", 0))

	_, ok := p.Get(context.Background(), "v1", customer())
	assert.False(t, ok)
	assert.NoError(t, p.Set(context.Background(), "v1", customer(), model.NewPrediction(0.4)))
}
