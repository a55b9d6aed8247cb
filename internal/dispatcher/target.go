package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// Target receives retention alerts for high-risk customers.
type Target interface {
	Name() string
	Ready() bool
	Acquire() bool
	Notify(ctx context.Context, ev model.PredictionEvent) error
}

// HTTPTarget posts alerts as JSON to a retention webhook.
type HTTPTarget struct {
	name   string
	url    string
	client *http.Client
	br     *MicroBreaker
}

func NewHTTPTarget(name, url string, timeoutMs, failThreshold, openForMs int) *HTTPTarget {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPTarget{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (t *HTTPTarget) Name() string  { return t.name }
func (t *HTTPTarget) Ready() bool   { return t.br.Ready() }
func (t *HTTPTarget) Acquire() bool { return t.br.TryAcquire() }

func (t *HTTPTarget) Notify(ctx context.Context, ev model.PredictionEvent) error {
	if err := t.post(ctx, ev); err != nil {
		t.br.OnFailure()
		return err
	}

	t.br.OnSuccess()

	return nil
}

func (t *HTTPTarget) post(ctx context.Context, ev model.PredictionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("target=%s status=%d", t.name, res.StatusCode)
	}

	return nil
}
