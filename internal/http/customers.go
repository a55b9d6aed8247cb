package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
)

type customerResp struct {
	Customer         *model.ImportedCustomer `json:"customer"`
	LatestPrediction *model.PredictionRow    `json:"latest_prediction"`
	Recommendations  []string                `json:"recommendations,omitempty"`
}

func customerHandler(customers repository.CustomersRepository, predictions repository.PredictionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if customers == nil {
			return errorJSON(c, http.StatusServiceUnavailable, "customer store not configured")
		}

		id := strings.TrimSpace(c.Param("id"))
		if id == "" || len(id) > 64 {
			return errorJSON(c, http.StatusBadRequest, "invalid customer id")
		}

		ctx := c.Request().Context()
		cust, err := customers.GetByID(ctx, id)
		if err != nil {
			logger.Log.Error("customer lookup failed", zap.String("customer_id", id), zap.Error(err))
			return errorJSON(c, http.StatusInternalServerError, "query failed")
		}
		if cust == nil {
			return errorJSON(c, http.StatusNotFound, "customer not found")
		}

		resp := customerResp{Customer: cust}
		if predictions != nil {
			latest, err := predictions.LatestByCustomer(ctx, id)
			if err != nil {
				logger.Log.Error("latest prediction lookup failed", zap.String("customer_id", id), zap.Error(err))
				return errorJSON(c, http.StatusInternalServerError, "query failed")
			}
			if latest != nil {
				resp.LatestPrediction = latest
				resp.Recommendations = latest.Tier.Recommendations()
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}
