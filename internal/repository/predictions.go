package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// PredictionsRepository persists scored records to the predictions table.
type PredictionsRepository interface {
	InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.PredictionRow) error
	LatestByCustomer(ctx context.Context, customerID string) (*model.PredictionRow, error)
}

type PredictionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewPredictionsRepository(db *sqlx.DB) *PredictionsRepositoryImpl {
	return &PredictionsRepositoryImpl{db: db}
}

var _ PredictionsRepository = (*PredictionsRepositoryImpl)(nil)

const predictionColumns = `id, batch_id, customer_id, contract, internet_service, payment_method,
	online_security, tech_support, tenure, monthly_charges, total_charges,
	probability, tier, label, model_version, created_at`

// predictionsPerInsert keeps one statement well under maxPlaceholders.
const predictionsPerInsert = 1000

// InsertBatch writes rows with multi-values statements of at most
// predictionsPerInsert rows, all in one transaction. Replayed ids are ignored
// so at-least-once producers stay idempotent.
func (r *PredictionsRepositoryImpl) InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}

	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		for _, chunk := range chunks(rows, predictionsPerInsert) {
			q, args := buildPredictionInsert(chunk)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func buildPredictionInsert(rows []model.PredictionRow) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*16)

	sb.WriteString("INSERT INTO predictions (" + predictionColumns + ") VALUES ")
	for i, p := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			p.ID, p.BatchID, p.CustomerID, p.Contract, p.InternetService, p.PaymentMethod,
			p.OnlineSecurity, p.TechSupport, p.Tenure, p.MonthlyCharges, p.TotalCharges,
			p.Probability, p.Tier.String(), p.Label, p.ModelVersion, p.CreatedAt,
		)
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE id = id")
	return sb.String(), args
}

// LatestByCustomer returns the most recent prediction for a customer, or nil.
func (r *PredictionsRepositoryImpl) LatestByCustomer(ctx context.Context, customerID string) (*model.PredictionRow, error) {
	var p model.PredictionRow
	err := r.db.GetContext(ctx, &p, `
		SELECT `+predictionColumns+`
		  FROM predictions
		 WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1
	`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
