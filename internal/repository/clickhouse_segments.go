package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

var ErrUnknownDimension = errors.New("unknown segment dimension")

// segmentColumns whitelists the grouping expressions. Nothing from a request
// is ever interpolated into SQL except through this map.
var segmentColumns = map[model.Dimension]string{
	model.DimContract:        "contract",
	model.DimInternetService: "internet_service",
	model.DimPaymentMethod:   "payment_method",
	model.DimOnlineSecurity:  "online_security",
	model.DimTechSupport:     "tech_support",
	model.DimTier:            "tier",
	model.DimTenureGroup: "multiIf(tenure <= 12, 'New (0-12 months)', " +
		"tenure <= 36, 'Medium (13-36 months)', 'Long-term (36+ months)')",
}

// SegmentQuery selects prediction history to aggregate. Several dimensions
// produce a crossed key joined with " / ".
type SegmentQuery struct {
	By      []model.Dimension
	BatchID string
	Since   time.Time
	Limit   int
}

// CHSegmentsRepository runs segment reports over ClickHouse prediction history.
type CHSegmentsRepository interface {
	Summaries(ctx context.Context, q SegmentQuery) ([]model.SegmentSummary, error)
}

type chSegmentsRepository struct {
	ch       *sqlx.DB // ClickHouse connection
	database string
}

func NewCHSegmentsRepository(ch *sqlx.DB, database string) CHSegmentsRepository {
	return &chSegmentsRepository{ch: ch, database: database}
}

func (r *chSegmentsRepository) Summaries(ctx context.Context, q SegmentQuery) ([]model.SegmentSummary, error) {
	query, args, err := buildSegmentQuery(r.database, q)
	if err != nil {
		return nil, err
	}

	rows := []model.SegmentSummary{}
	if err := r.ch.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildSegmentQuery(database string, q SegmentQuery) (string, []any, error) {
	if len(q.By) == 0 {
		return "", nil, fmt.Errorf("%w: none given", ErrUnknownDimension)
	}
	exprs := make([]string, 0, len(q.By))
	for _, d := range q.By {
		col, ok := segmentColumns[d]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
		exprs = append(exprs, col)
	}
	key := exprs[0]
	if len(exprs) > 1 {
		key = "concat(" + strings.Join(exprs, ", ' / ', ") + ")"
	}

	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT %s AS segment,
		       toInt64(count()) AS customers,
		       avg(probability) AS mean_probability,
		       toInt64(countIf(tier = 'High')) AS at_risk_customers,
		       toString(sumIf(monthly_charges, tier = 'High')) AS monthly_revenue_at_risk,
		       toString(sumIf(monthly_charges, tier = 'High') * 12) AS annual_revenue_at_risk
		FROM %s.predictions FINAL
		WHERE 1 = 1`, key, database)

	var args []any
	if q.BatchID != "" {
		sb.WriteString(" AND batch_id = ?")
		args = append(args, q.BatchID)
	}
	if !q.Since.IsZero() {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, q.Since)
	}

	sb.WriteString(" GROUP BY segment ORDER BY sumIf(monthly_charges, tier = 'High') DESC, segment ASC LIMIT ?")
	args = append(args, q.Limit)

	return sb.String(), args, nil
}
