package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/cache"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

// predictResp always carries probability, tier, label and error; the unset
// side is null.
type predictResp struct {
	Success         bool            `json:"success"`
	Error           *string         `json:"error"`
	Probability     *float64        `json:"probability"`
	Tier            *model.Tier     `json:"tier"`
	Label           *int            `json:"label"`
	Kind            model.ErrorKind `json:"kind,omitempty"`
	Field           string          `json:"field,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	ModelVersion    string          `json:"model_version,omitempty"`
	Cached          bool            `json:"cached,omitempty"`
}

func predictHandler(p Scorer, pc *cache.Predictions) echo.HandlerFunc {
	return func(c echo.Context) error {
		var raw model.RawRecord
		if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil || raw == nil {
			return errorJSON(c, http.StatusBadRequest, "body must be a JSON object")
		}

		cust, err := p.Validate(raw)
		if err != nil {
			return predictError(c, err)
		}

		ctx := c.Request().Context()
		pred, hit := pc.Get(ctx, p.Version(), cust)
		if !hit {
			pred, err = p.PredictCustomer(cust)
			if err != nil {
				return predictError(c, err)
			}
			if err := pc.Set(ctx, p.Version(), cust, pred); err != nil {
				logger.Log.Warn("prediction cache set failed", zap.Error(err))
			}
		}

		metrics.PredictionsTotal.WithLabelValues("single", pred.Tier.String()).Inc()

		return c.JSON(http.StatusOK, predictResp{
			Success:         true,
			CustomerID:      cust.ID,
			Probability:     &pred.Probability,
			Tier:            &pred.Tier,
			Label:           &pred.Label,
			Recommendations: pred.Tier.Recommendations(),
			ModelVersion:    p.Version(),
			Cached:          hit,
		})
	}
}

// predictError answers 422 for bad input and 500 for anything else.
func predictError(c echo.Context, err error) error {
	if fe, ok := model.AsFieldError(err); ok {
		metrics.RejectedTotal.WithLabelValues("single", fe.Kind.String()).Inc()
		msg := fe.Error()
		return c.JSON(http.StatusUnprocessableEntity, predictResp{
			Error: &msg,
			Kind:  fe.Kind,
			Field: fe.Field,
		})
	}
	logger.Log.Error("prediction failed", zap.Error(err))
	msg := "model unavailable"
	return c.JSON(http.StatusInternalServerError, predictResp{Error: &msg})
}
