package forest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// Forest averages the votes of its trees. It is read-only after Load and safe
// for concurrent use.
type Forest struct {
	Version string `json:"version"`
	// Width is the feature vector length the forest was trained on
	Width int    `json:"width"`
	Trees []Tree `json:"trees"`
}

// Load decodes and validates a model.json artifact.
func Load(r io.Reader) (*Forest, error) {
	var f Forest
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every tree against the declared width.
func (f *Forest) Validate() error {
	if f.Width <= 0 {
		return fmt.Errorf("forest: invalid width %d", f.Width)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest: no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.Width); err != nil {
			return fmt.Errorf("forest: tree %d: %w", i, err)
		}
	}
	return nil
}

// PredictProbability returns the mean positive-class vote, in [0,1].
func (f *Forest) PredictProbability(x model.FeatureVector) (float64, error) {
	if len(x) != f.Width {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", model.ErrShapeMismatch, len(x), f.Width)
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Evaluate(x)
	}
	p := sum / float64(len(f.Trees))
	if p > 1 {
		p = 1
	}
	return p, nil
}

// SplitCounts returns how many splits test each feature, summed over trees.
func (f *Forest) SplitCounts() []int {
	counts := make([]int, f.Width)
	for _, t := range f.Trees {
		for _, n := range t.Nodes {
			counts[n.Feature]++
		}
	}
	return counts
}
