package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
)

// reports maps a report name onto the dimensions it groups by.
var reports = map[string][]model.Dimension{
	"contract":      {model.DimContract},
	"revenue":       {model.DimInternetService},
	"risk-segments": {model.DimTenureGroup, model.DimPaymentMethod},
	"services":      {model.DimOnlineSecurity, model.DimTechSupport},
}

// serviceDimensions are reported as separate tables, never crossed.
var serviceDimensions = map[string]model.Dimension{
	"online_security": model.DimOnlineSecurity,
	"tech_support":    model.DimTechSupport,
}

func analyticsHandler(repo repository.CHSegmentsRepository, defaultLimit int) echo.HandlerFunc {
	return func(c echo.Context) error {
		if repo == nil {
			return errorJSON(c, http.StatusServiceUnavailable, "analytics store not configured")
		}

		report := c.Param("report")
		by, ok := reports[report]
		if !ok {
			return errorJSON(c, http.StatusNotFound, "unknown report")
		}
		if report == "services" {
			if raw := strings.TrimSpace(c.QueryParam("by")); raw != "" {
				d, ok := serviceDimensions[raw]
				if !ok {
					return errorJSON(c, http.StatusBadRequest, "by must be online_security or tech_support")
				}
				by = []model.Dimension{d}
			}
		}

		q := repository.SegmentQuery{
			By:      by,
			BatchID: strings.TrimSpace(c.QueryParam("batch_id")),
			Limit:   defaultLimit,
		}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				q.Limit = n
			}
		}
		if v := strings.TrimSpace(c.QueryParam("since")); v != "" {
			since, err := parseSince(v)
			if err != nil {
				return errorJSON(c, http.StatusBadRequest, "since must be RFC3339 or YYYY-MM-DD")
			}
			q.Since = since
		}

		ctx := c.Request().Context()
		if report == "services" && len(by) > 1 {
			tables := make(map[model.Dimension][]model.SegmentSummary, len(by))
			for _, d := range by {
				dq := q
				dq.By = []model.Dimension{d}
				rows, err := repo.Summaries(ctx, dq)
				if err != nil {
					return queryFailed(c, report, err)
				}
				tables[d] = rows
			}
			return c.JSON(http.StatusOK, map[string]any{
				"report": report,
				"by":     by,
				"tables": tables,
			})
		}

		rows, err := repo.Summaries(ctx, q)
		if err != nil {
			return queryFailed(c, report, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"report":  report,
			"by":      by,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func queryFailed(c echo.Context, report string, err error) error {
	logger.Log.Error("clickhouse segment query failed", zap.String("report", report), zap.Error(err))

	return errorJSON(c, http.StatusInternalServerError, "query failed")
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
