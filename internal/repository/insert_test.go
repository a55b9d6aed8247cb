package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// limitDriver is an in-memory database/sql driver that rejects statements
// binding more than maxPlaceholders parameters, as MySQL does.
type limitDriver struct {
	mu      sync.Mutex
	execs   []int // bound args per statement
	commits int
}

func (d *limitDriver) Connect(context.Context) (driver.Conn, error) { return &limitConn{d: d}, nil }
func (d *limitDriver) Driver() driver.Driver                        { return d }
func (d *limitDriver) Open(string) (driver.Conn, error)             { return &limitConn{d: d}, nil }

type limitConn struct{ d *limitDriver }

func (c *limitConn) Prepare(query string) (driver.Stmt, error) { return &limitStmt{d: c.d}, nil }
func (c *limitConn) Close() error                              { return nil }
func (c *limitConn) Begin() (driver.Tx, error)                 { return &limitTx{d: c.d}, nil }

type limitTx struct{ d *limitDriver }

func (t *limitTx) Commit() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.commits++
	return nil
}

func (t *limitTx) Rollback() error { return nil }

type limitStmt struct{ d *limitDriver }

func (s *limitStmt) Close() error  { return nil }
func (s *limitStmt) NumInput() int { return -1 }

func (s *limitStmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) > maxPlaceholders {
		return nil, fmt.Errorf("Error 1390: Prepared statement contains too many placeholders (%d)", len(args))
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.execs = append(s.d.execs, len(args))
	return driver.RowsAffected(1), nil
}

func (s *limitStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("not supported")
}

func newLimitDB(t *testing.T) (*sqlx.DB, *limitDriver) {
	t.Helper()
	d := &limitDriver{}
	db := sqlx.NewDb(sql.OpenDB(d), "mysql")
	t.Cleanup(func() { _ = db.Close() })
	return db, d
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func TestPredictionsInsertBatch_LargeBatchStaysUnderPlaceholderLimit(t *testing.T) {
	db, d := newLimitDB(t)
	repo := NewPredictionsRepository(db)

	const n = 4097
	rows := make([]model.PredictionRow, n)
	for i := range rows {
		rows[i] = model.PredictionRow{
			ID:             fmt.Sprintf("p-%d", i),
			BatchID:        "01HX",
			Tier:           model.TierLow,
			MonthlyCharges: decimal.RequireFromString("20.15"),
			TotalCharges:   decimal.RequireFromString("685.10"),
			CreatedAt:      time.Unix(0, 0).UTC(),
		}
	}

	require.NoError(t, repo.InsertBatch(context.Background(), nil, rows))

	assert.Len(t, d.execs, 5)
	for _, args := range d.execs {
		assert.LessOrEqual(t, args, maxPlaceholders)
	}
	assert.Equal(t, n*16, sum(d.execs))
	assert.Equal(t, 1, d.commits, "all chunks share one transaction")
}

func TestOutboxInsertBatch_LargeBatchStaysUnderPlaceholderLimit(t *testing.T) {
	db, d := newLimitDB(t)
	repo := NewOutboxRepository(db)

	const n = 17000
	events := make([]OutboxEvent, n)
	for i := range events {
		events[i] = OutboxEvent{Aggregate: "prediction", AggregateID: fmt.Sprint(i), Topic: "churn.predictions", Payload: []byte(`{}`)}
	}

	require.NoError(t, repo.InsertBatch(context.Background(), nil, events))

	for _, args := range d.execs {
		assert.LessOrEqual(t, args, maxPlaceholders)
	}
	assert.Equal(t, n*4, sum(d.execs))
	assert.Equal(t, 1, d.commits)
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, chunks([]int{1, 2, 3, 4, 5, 6, 7}, 3))
	assert.Equal(t, [][]int{{1, 2}}, chunks([]int{1, 2}, 3))
}
