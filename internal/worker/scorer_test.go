package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/kafka"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/pipeline"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
	"github.com/jmehdipour/churn-predictor/internal/testutil"
)

type fakeSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	i         int
	committed []int64
}

func (s *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if s.i < len(s.msgs) {
		m := s.msgs[s.i]
		s.i++
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *fakeSource) Commit(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	return nil
}

func (s *fakeSource) Committed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

type fakeRecorder struct {
	mu    sync.Mutex
	items []history.Scored
	err   error
}

func (r *fakeRecorder) Record(_ context.Context, _, version string, items []history.Scored) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, items...)
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	events []model.PredictionEvent
}

func (a *fakeAlerter) Alert(_ context.Context, ev model.PredictionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

type brokenScorer struct{}

func (brokenScorer) Score(model.RawRecord) (model.Customer, model.Prediction, error) {
	return model.Customer{}, model.Prediction{}, model.ErrShapeMismatch
}

func (brokenScorer) Version() string { return "broken" }

func envelope(t *testing.T, offset int64, id string, rec model.RawRecord) kafka.Message {
	t.Helper()
	b, err := json.Marshal(model.Envelope{ID: id, Record: rec})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestScorerKafka_ScoresStoresAndCommits(t *testing.T) {
	missing := testutil.ValidRecord()
	delete(missing, model.FieldTenure)

	src := &fakeSource{msgs: []kafka.Message{
		envelope(t, 0, "evt-high", testutil.ValidRecord()),
		{Offset: 1, Value: []byte("{not json")},
		envelope(t, 2, "evt-missing", missing),
		envelope(t, 3, "evt-low", testutil.LowRiskRecord()),
		envelope(t, 4, "", testutil.ValidRecord()),
	}}
	rec := &fakeRecorder{}
	alerts := &fakeAlerter{}

	w := NewScorerKafka(src, pipeline.New(testutil.Bundle(t), 1), rec, alerts)
	w.Workers = 3
	w.BatchWait = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(src.Committed()) == 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, []int64{0, 1, 2, 3, 4}, src.Committed())

	require.Len(t, rec.items, 2)
	assert.Equal(t, "evt-high", rec.items[0].ID)
	assert.Equal(t, model.TierHigh, rec.items[0].Prediction.Tier)
	assert.Equal(t, "evt-low", rec.items[1].ID)
	assert.Equal(t, model.TierLow, rec.items[1].Prediction.Tier)

	require.Len(t, alerts.events, 1)
	assert.Equal(t, "7590-VHVEG", alerts.events[0].CustomerID)
	assert.Equal(t, testutil.Version, alerts.events[0].ModelVersion)
}

func TestScorerKafka_StoreFailureStopsWithoutCommit(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{envelope(t, 0, "evt-1", testutil.ValidRecord())}}
	rec := &fakeRecorder{err: errors.New("mysql down")}

	w := NewScorerKafka(src, pipeline.New(testutil.Bundle(t), 1), rec, nil)
	w.BatchWait = 10 * time.Millisecond

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql down")
	assert.Empty(t, src.Committed())
}

func TestScorerKafka_ConfigurationErrorStops(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{envelope(t, 0, "evt-1", testutil.ValidRecord())}}

	w := NewScorerKafka(src, brokenScorer{}, &fakeRecorder{}, nil)
	w.BatchWait = 10 * time.Millisecond

	err := w.Run(context.Background())
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, src.Committed())
}
