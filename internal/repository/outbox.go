package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// OutboxEvent is one row of the outbox table. A CDC connector publishes it to
// Kafka under Topic.
type OutboxEvent struct {
	Aggregate   string
	AggregateID string
	Topic       string
	Payload     []byte
}

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// InsertBatch writes events in the given tx, or in its own transaction
	// when tx is nil.
	InsertBatch(ctx context.Context, tx *sqlx.Tx, events []OutboxEvent) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

const eventsPerInsert = 2000

func (r *OutboxRepositoryImpl) InsertBatch(ctx context.Context, tx *sqlx.Tx, events []OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		for _, chunk := range chunks(events, eventsPerInsert) {
			q, args := buildOutboxInsert(chunk)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func buildOutboxInsert(events []OutboxEvent) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(events)*4)

	sb.WriteString(`INSERT INTO outbox (aggregate, aggregate_id, topic, payload, created_at) VALUES `)
	for i, e := range events {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, NOW())")
		args = append(args, e.Aggregate, e.AggregateID, e.Topic, e.Payload)
	}
	return sb.String(), args
}
