// Package pipeline runs validation, encoding, inference and tiering for single
// records and for batches.
package pipeline

import (
	"runtime"
	"sync"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/schema"
)

// Classifier is the read-only model behind the pipeline.
type Classifier interface {
	PredictProbability(v model.FeatureVector) (float64, error)
}

// Assembler turns a validated record into a feature vector.
type Assembler interface {
	Assemble(c model.Customer) (model.FeatureVector, error)
}

// Pipeline holds only immutable state and may be shared by any number of
// concurrent callers.
type Pipeline struct {
	version   string
	validator *schema.Validator
	assembler Assembler
	model     Classifier
	workers   int
}

// New builds a pipeline over a loaded bundle. workers <= 0 uses GOMAXPROCS.
func New(b *artifact.Bundle, workers int) *Pipeline {
	return newPipeline(b.Version, b.Assembler, b.Forest, workers)
}

func newPipeline(version string, asm Assembler, clf Classifier, workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{
		version:   version,
		validator: schema.New(),
		assembler: asm,
		model:     clf,
		workers:   workers,
	}
}

// Version is the model artifact version predictions are made with.
func (p *Pipeline) Version() string { return p.version }

// Predict scores one record. Input problems come back as *model.FieldError;
// anything else is a configuration error.
func (p *Pipeline) Predict(raw model.RawRecord) (model.Prediction, error) {
	_, pred, err := p.predict(raw)
	return pred, err
}

// Score is Predict that also returns the validated record.
func (p *Pipeline) Score(raw model.RawRecord) (model.Customer, model.Prediction, error) {
	return p.predict(raw)
}

func (p *Pipeline) predict(raw model.RawRecord) (model.Customer, model.Prediction, error) {
	c, err := p.validator.Validate(raw)
	if err != nil {
		return model.Customer{}, model.Prediction{}, err
	}
	pred, err := p.PredictCustomer(c)
	if err != nil {
		return model.Customer{}, model.Prediction{}, err
	}
	return c, pred, nil
}

// Validate runs only the input checks, for callers that look a record up
// before scoring it.
func (p *Pipeline) Validate(raw model.RawRecord) (model.Customer, error) {
	return p.validator.Validate(raw)
}

// PredictCustomer scores an already validated record.
func (p *Pipeline) PredictCustomer(c model.Customer) (model.Prediction, error) {
	v, err := p.assembler.Assemble(c)
	if err != nil {
		return model.Prediction{}, err
	}
	prob, err := p.model.PredictProbability(v)
	if err != nil {
		return model.Prediction{}, err
	}
	return model.NewPrediction(prob), nil
}

// RunBatch scores every record independently. Input errors are recorded on
// their row and never affect siblings; the outcome has one entry per record in
// input order. A configuration error aborts the whole batch.
func (p *Pipeline) RunBatch(records []model.RawRecord) (model.BatchOutcome, error) {
	outcomes := make([]model.Outcome, len(records))

	workers := p.workers
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan int, workers*2)
	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.runOne(i, records[i])
				if err := outcomes[i].Err; err != nil && isConfigError(err) {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					fatalMu.Unlock()
				}
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return model.BatchOutcome{}, fatalErr
	}

	out := model.BatchOutcome{Outcomes: outcomes}
	for _, o := range outcomes {
		if !o.OK() {
			out.Failed++
		}
	}
	return out, nil
}

func (p *Pipeline) runOne(row int, raw model.RawRecord) model.Outcome {
	c, pred, err := p.predict(raw)
	if err != nil {
		return model.Outcome{Row: row, Raw: raw, Err: err}
	}
	return model.Outcome{Row: row, Raw: raw, Customer: c, Prediction: &pred}
}

// isConfigError reports errors that are not about the record's content, such
// as model.ErrShapeMismatch.
func isConfigError(err error) bool {
	_, input := model.AsFieldError(err)
	return !input
}
