package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

var (
	ErrNoHealthy = errors.New("no healthy retention targets")
	ErrNoAcquire = errors.New("retention target not acquired")
)

// Dispatcher spreads alerts over healthy targets round-robin, retrying on
// another target up to maxAttempts times.
type Dispatcher struct {
	targets           []Target
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(targets []Target, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	return &Dispatcher{targets: targets, maxAttempts: maxAttempts}
}

// FromConfig builds HTTP targets for every enabled webhook.
func FromConfig(c config.RetentionConfig) *Dispatcher {
	targets := make([]Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		if !t.Enabled || t.URL == "" {
			continue
		}
		targets = append(targets, NewHTTPTarget(t.Name, t.URL, t.TimeoutMs, t.Breaker.FailThreshold, t.Breaker.OpenForMs))
	}
	return NewDispatcher(targets, c.MaxAttempts)
}

// Enabled reports whether any target is configured.
func (d *Dispatcher) Enabled() bool { return len(d.targets) > 0 }

func (d *Dispatcher) selectTarget() (Target, error) {
	healthy := make([]Target, 0, len(d.targets))
	for _, t := range d.targets {
		if t.Ready() {
			healthy = append(healthy, t)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, ev model.PredictionEvent) error {
	t, err := d.selectTarget()
	if err != nil {
		return err
	}

	if !t.Acquire() {
		return ErrNoAcquire
	}

	return t.Notify(ctx, ev)
}

// Alert delivers ev to one retention target.
func (d *Dispatcher) Alert(ctx context.Context, ev model.PredictionEvent) error {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		err := d.tryOnce(ctx, ev)
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, ErrNoHealthy) || ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("alert %s: %w", ev.ID, last)
}
