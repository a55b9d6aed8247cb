package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/util"
)

const PredictionsKafkaTopic = "churn.predictions"

// Scored is one successful prediction ready to be stored. ID is stable across
// retries when the caller derives it from an upstream event id.
type Scored struct {
	ID         string
	Customer   model.Customer
	Prediction model.Prediction
}

// FromOutcomes keeps the successful rows of a batch, assigning fresh ids.
func FromOutcomes(outcomes []model.Outcome) []Scored {
	out := make([]Scored, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		out = append(out, Scored{ID: util.NewID(), Customer: o.Customer, Prediction: *o.Prediction})
	}
	return out
}

// Service atomically persists predictions and their outbox events.
type Service struct {
	db          *sqlx.DB
	predictions repository.PredictionsRepository
	outbox      repository.OutboxRepository
	now         func() time.Time
}

// New constructs the history service.
func New(
	db *sqlx.DB,
	predictionsRepo repository.PredictionsRepository,
	outboxRepo repository.OutboxRepository,
) *Service {
	return &Service{
		db:          db,
		predictions: predictionsRepo,
		outbox:      outboxRepo,
		now:         time.Now,
	}
}

// Record writes the predictions of one batch and one outbox event per
// prediction within a single transaction. The outbox rows are published to
// PredictionsKafkaTopic by CDC and land in the ClickHouse history.
func (s *Service) Record(ctx context.Context, batchID, modelVersion string, items []Scored) error {
	if len(items) == 0 {
		return nil
	}

	rows, events, err := build(batchID, modelVersion, items, s.now().UTC())
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.predictions.InsertBatch(ctx, tx, rows); err != nil {
		return fmt.Errorf("insert predictions: %w", err)
	}

	if err := s.outbox.InsertBatch(ctx, tx, events); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	return tx.Commit()
}

func build(batchID, modelVersion string, items []Scored, now time.Time) ([]model.PredictionRow, []repository.OutboxEvent, error) {
	rows := make([]model.PredictionRow, 0, len(items))
	events := make([]repository.OutboxEvent, 0, len(items))

	for _, it := range items {
		c := it.Customer
		row := model.PredictionRow{
			ID:              it.ID,
			BatchID:         batchID,
			CustomerID:      c.ID,
			Contract:        c.Contract,
			InternetService: c.InternetService,
			PaymentMethod:   c.PaymentMethod,
			OnlineSecurity:  c.OnlineSecurity,
			TechSupport:     c.TechSupport,
			Tenure:          c.Tenure,
			MonthlyCharges:  c.MonthlyCharges,
			TotalCharges:    c.TotalCharges,
			Probability:     it.Prediction.Probability,
			Tier:            it.Prediction.Tier,
			Label:           it.Prediction.Label,
			ModelVersion:    modelVersion,
			CreatedAt:       now,
		}
		rows = append(rows, row)

		// the analytics store is fed from this payload, so it carries the
		// full row rather than just the prediction
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal prediction row: %w", err)
		}
		events = append(events, repository.OutboxEvent{
			Aggregate:   "prediction",
			AggregateID: it.ID,
			Topic:       PredictionsKafkaTopic,
			Payload:     payload,
		})
	}
	return rows, events, nil
}
