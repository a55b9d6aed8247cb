package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/kafka"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/service/history"
	"github.com/jmehdipour/churn-predictor/internal/util"
)

const source = "stream"

// Source is the subset of the Kafka consumer the scorer needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

type Scorer interface {
	Score(raw model.RawRecord) (model.Customer, model.Prediction, error)
	Version() string
}

type Recorder interface {
	Record(ctx context.Context, batchID, modelVersion string, items []history.Scored) error
}

type Alerter interface {
	Alert(ctx context.Context, ev model.PredictionEvent) error
}

// ScorerKafka:
// - fetches record envelopes from Kafka,
// - scores them on a pool of processors,
// - stores predictions in size/time batches and commits offsets only after
//   the batch holding them is stored (at-least-once),
// - alerts retention targets about High-tier customers.
type ScorerKafka struct {
	// Dependencies
	Source   Source
	Pipeline Scorer
	History  Recorder
	Alerts   Alerter // optional

	// Behavior
	Workers   int           // number of goroutines scoring messages
	BatchSize int           // max buffered predictions per flush
	BatchWait time.Duration // max time to wait before flush
}

func NewScorerKafka(src Source, p Scorer, h Recorder, alerts Alerter) *ScorerKafka {
	return &ScorerKafka{
		Source:    src,
		Pipeline:  p,
		History:   h,
		Alerts:    alerts,
		Workers:   16,
		BatchSize: 200,
		BatchWait: 300 * time.Millisecond,
	}
}

// ErrConfiguration wraps a scoring failure that is not the record's fault.
// The worker stops without committing so the message is retried after a fix.
var ErrConfiguration = errors.New("scorer configuration error")

type sequenced struct {
	seq uint64
	msg kafka.Message
}

type result struct {
	seq    uint64
	msg    kafka.Message
	scored *history.Scored
	err    error
}

// Run starts the worker and blocks until ctx is cancelled and in-flight
// messages are stored, or until storing fails.
func (w *ScorerKafka) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 16
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 200
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgCh := make(chan sequenced, w.Workers*2)
	results := make(chan result, w.BatchSize*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		var seq uint64
		for {
			m, err := w.Source.Fetch(fetchCtx)
			if err != nil {
				if fetchCtx.Err() != nil {
					return
				}
				logger.Log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-fetchCtx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- sequenced{seq: seq, msg: m}:
				seq++
			case <-fetchCtx.Done():
				return
			}
		}
	}()

	// Start processors
	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				results <- w.processOne(fetchCtx, m)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	err := w.runBatchWriter(context.WithoutCancel(ctx), results)
	if err != nil {
		cancel()
		for range results {
		}
	}
	return err
}

func (w *ScorerKafka) processOne(ctx context.Context, s sequenced) result {
	res := result{seq: s.seq, msg: s.msg}

	var env model.Envelope
	if err := json.Unmarshal(s.msg.Value, &env); err != nil || env.ID == "" || env.Record == nil {
		// poison → commit, skip
		metrics.RejectedTotal.WithLabelValues(source, "BadEnvelope").Inc()
		logger.Log.Warn("bad envelope",
			zap.Int64("offset", s.msg.Offset), zap.Int("partition", s.msg.Partition), zap.Error(err))
		return res
	}

	customer, pred, err := w.Pipeline.Score(env.Record)
	if err != nil {
		if fe, ok := model.AsFieldError(err); ok {
			metrics.RejectedTotal.WithLabelValues(source, fe.Kind.String()).Inc()
			logger.Log.Info("record rejected",
				zap.String("envelope_id", env.ID), zap.String("customer_id", env.Record.CustomerID()), zap.Error(err))
			return res
		}
		res.err = fmt.Errorf("%w: envelope %s: %v", ErrConfiguration, env.ID, err)
		return res
	}

	metrics.PredictionsTotal.WithLabelValues(source, pred.Tier.String()).Inc()
	res.scored = &history.Scored{ID: env.ID, Customer: customer, Prediction: pred}

	if pred.Tier == model.TierHigh && w.Alerts != nil {
		ev := model.PredictionEvent{
			ID:              env.ID,
			CustomerID:      customer.ID,
			Prediction:      pred,
			ModelVersion:    w.Pipeline.Version(),
			Recommendations: pred.Tier.Recommendations(),
		}
		if err := w.Alerts.Alert(ctx, ev); err != nil {
			metrics.AlertsTotal.WithLabelValues("failed").Inc()
			logger.Log.Warn("retention alert failed", zap.String("customer_id", customer.ID), zap.Error(err))
		} else {
			metrics.AlertsTotal.WithLabelValues("sent").Inc()
		}
	}
	return res
}

// runBatchWriter does size/time-based flushes. Results are released to a
// batch strictly in fetch order so a commit never passes an unstored message.
func (w *ScorerKafka) runBatchWriter(ctx context.Context, in <-chan result) error {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var (
		next    uint64
		pending = make(map[uint64]result)
		msgs    []kafka.Message
		items   []history.Scored
	)

	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}

		if len(items) > 0 {
			batchID := util.NewID()
			if err := w.History.Record(ctx, batchID, w.Pipeline.Version(), items); err != nil {
				return fmt.Errorf("record predictions: %w", err)
			}
			logger.Log.Info("scorer flushed",
				zap.String("batch_id", batchID), zap.Int("predictions", len(items)), zap.Int("messages", len(msgs)))
		}

		// at-least-once; replays are idempotent on prediction id
		if err := w.Source.Commit(ctx, msgs...); err != nil {
			logger.Log.Warn("kafka commit failed", zap.Error(err))
		}

		msgs = msgs[:0]
		items = items[:0]
		return nil
	}

	for {
		select {
		case r, ok := <-in:
			if !ok {
				return flush()
			}
			if r.err != nil {
				return r.err
			}

			pending[r.seq] = r
			for {
				p, ready := pending[next]
				if !ready {
					break
				}
				delete(pending, next)
				next++
				msgs = append(msgs, p.msg)
				if p.scored != nil {
					items = append(items, *p.scored)
				}
			}

			if len(items) >= w.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}

		case <-tick.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}
