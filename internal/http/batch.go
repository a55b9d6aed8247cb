package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/analytics"
	"github.com/jmehdipour/churn-predictor/internal/csvio"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/schema"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
	"github.com/jmehdipour/churn-predictor/internal/util"
)

var errTooManyRows = errors.New("too many rows")

type batchLimits struct {
	MaxRows   int
	MaxUpload int64
	TopN      int
}

type batchReq struct {
	Records []model.RawRecord `json:"records"`
}

type batchRow struct {
	Row         int        `json:"row"`
	CustomerID  string     `json:"customer_id,omitempty"`
	Probability *float64   `json:"probability,omitempty"`
	Tier        model.Tier `json:"tier,omitempty"`
	Label       *int       `json:"label,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type batchResp struct {
	BatchID      string                            `json:"batch_id"`
	ModelVersion string                            `json:"model_version"`
	Total        int                               `json:"total"`
	Scored       int                               `json:"scored"`
	Failed       int                               `json:"failed"`
	Recorded     bool                              `json:"recorded"`
	Results      []batchRow                        `json:"results"`
	Failures     []model.RowFailure                `json:"failures"`
	Summary      model.Distribution                `json:"summary"`
	Segments     map[string][]model.SegmentSummary `json:"segments"`
	TopRisk      []batchRow                        `json:"top_risk"`
}

func batchHandler(p Scorer, rec Recorder, lim batchLimits) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, records, err := readBatch(c, lim)
		switch {
		case errors.Is(err, errTooManyRows):
			return errorJSON(c, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, schema.ErrMissingColumns), errors.Is(err, csvio.ErrEmptyTable):
			return errorJSON(c, http.StatusBadRequest, err.Error())
		case err != nil:
			return errorJSON(c, http.StatusBadRequest, "bad request")
		}

		metrics.BatchRows.Observe(float64(len(records)))

		out, err := p.RunBatch(records)
		if err != nil {
			logger.Log.Error("batch aborted", zap.Error(err), zap.Int("rows", len(records)))
			return errorJSON(c, http.StatusInternalServerError, "model unavailable")
		}
		countOutcomes(out)

		batchID := util.NewID()
		recorded := false
		if rec != nil && len(out.Outcomes) > out.Failed {
			if err := rec.Record(c.Request().Context(), batchID, p.Version(), history.FromOutcomes(out.Outcomes)); err != nil {
				logger.Log.Error("record batch failed", zap.String("batch_id", batchID), zap.Error(err))
			} else {
				recorded = true
			}
		}

		if c.QueryParam("format") == "csv" {
			c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
			c.Response().Header().Set(echo.HeaderContentDisposition,
				fmt.Sprintf(`attachment; filename="churn_predictions_%s.csv"`, batchID))
			c.Response().WriteHeader(http.StatusOK)
			return csvio.WriteResults(c.Response(), csvio.ResultRows(rows, out))
		}

		results := make([]batchRow, len(out.Outcomes))
		for i, o := range out.Outcomes {
			results[i] = toBatchRow(o)
		}

		return c.JSON(http.StatusOK, batchResp{
			BatchID:      batchID,
			ModelVersion: p.Version(),
			Total:        len(out.Outcomes),
			Scored:       len(out.Outcomes) - out.Failed,
			Failed:       out.Failed,
			Recorded:     recorded,
			Results:      results,
			Failures:     out.Failures(),
			Summary:      analytics.TierDistribution(out.Outcomes),
			Segments: map[string][]model.SegmentSummary{
				model.DimContract.String():        analytics.Aggregate(out.Outcomes, model.DimContract, analytics.ByRevenueAtRisk),
				model.DimInternetService.String(): analytics.Aggregate(out.Outcomes, model.DimInternetService, analytics.ByRevenueAtRisk),
			},
			TopRisk: topRisk(out.Outcomes, lim.TopN),
		})
	}
}

// readBatch accepts a JSON body, a CSV body, or a multipart "file" upload.
func readBatch(c echo.Context, lim batchLimits) ([]csvio.Row, []model.RawRecord, error) {
	req := c.Request()
	ct, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))

	var (
		rows    []csvio.Row
		records []model.RawRecord
		err     error
	)
	switch ct {
	case echo.MIMEMultipartForm:
		if err := req.ParseMultipartForm(lim.MaxUpload); err != nil {
			return nil, nil, err
		}
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			return nil, nil, ferr
		}
		f, ferr := fh.Open()
		if ferr != nil {
			return nil, nil, ferr
		}
		defer f.Close()
		rows, err = csvio.ReadRows(f)
	case "text/csv":
		rows, err = csvio.ReadRows(req.Body)
	default:
		var body batchReq
		if err := json.NewDecoder(io.LimitReader(req.Body, lim.MaxUpload)).Decode(&body); err != nil {
			return nil, nil, err
		}
		records = body.Records
		rows = csvio.RowsFromRecords(records)
	}
	if err != nil {
		return nil, nil, err
	}

	if records == nil {
		records = make([]model.RawRecord, len(rows))
		for i, r := range rows {
			records[i] = r.Record()
		}
	}
	if lim.MaxRows > 0 && len(records) > lim.MaxRows {
		return nil, nil, fmt.Errorf("%w: %d > %d", errTooManyRows, len(records), lim.MaxRows)
	}
	return rows, records, nil
}

func countOutcomes(out model.BatchOutcome) {
	for _, o := range out.Outcomes {
		if o.OK() {
			metrics.PredictionsTotal.WithLabelValues("batch", o.Prediction.Tier.String()).Inc()
			continue
		}
		kind := "Other"
		if fe, ok := model.AsFieldError(o.Err); ok {
			kind = fe.Kind.String()
		}
		metrics.RejectedTotal.WithLabelValues("batch", kind).Inc()
	}
}

func toBatchRow(o model.Outcome) batchRow {
	r := batchRow{Row: o.Row, CustomerID: o.Raw.CustomerID()}
	if !o.OK() {
		r.Error = o.Err.Error()
		return r
	}
	p := *o.Prediction
	r.Probability = &p.Probability
	r.Tier = p.Tier
	r.Label = &p.Label
	return r
}

// topRisk lists the n most likely churners among High-tier rows.
func topRisk(outcomes []model.Outcome, n int) []batchRow {
	var high []model.Outcome
	for _, o := range outcomes {
		if o.OK() && o.Prediction.Tier == model.TierHigh {
			high = append(high, o)
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		return high[i].Prediction.Probability > high[j].Prediction.Probability
	})
	if n > 0 && len(high) > n {
		high = high[:n]
	}

	out := make([]batchRow, len(high))
	for i, o := range high {
		out[i] = toBatchRow(o)
	}
	return out
}
