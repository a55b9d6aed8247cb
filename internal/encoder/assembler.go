package encoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// ErrFeatureMismatch means the feature-name list and the encoder disagree on
// the set of fields. It is fatal at startup.
var ErrFeatureMismatch = errors.New("feature list does not match encoder fields")

// FeatureList is the on-disk form of the training column order.
type FeatureList struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

// LoadFeatureList decodes a feature_names.json artifact.
func LoadFeatureList(r io.Reader) (FeatureList, error) {
	var fl FeatureList
	if err := json.NewDecoder(r).Decode(&fl); err != nil {
		return FeatureList{}, fmt.Errorf("decode feature names: %w", err)
	}
	return fl, nil
}

type column struct {
	name        string
	categorical bool
}

// Assembler lays encoded categorical codes and raw numeric values out in the
// training column order.
type Assembler struct {
	enc     *Encoder
	columns []column
}

// NewAssembler checks that features is exactly the encoder's fields plus the
// numeric fields, each once.
func NewAssembler(features []string, enc *Encoder) (*Assembler, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: empty feature list", ErrFeatureMismatch)
	}

	seen := make(map[string]struct{}, len(features))
	cols := make([]column, 0, len(features))
	for _, f := range features {
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("%w: %q listed twice", ErrFeatureMismatch, f)
		}
		seen[f] = struct{}{}

		switch {
		case enc.has(f):
			if _, ok := (model.Customer{}).Category(f); !ok {
				return nil, fmt.Errorf("%w: encoder field %q is not a categorical attribute", ErrFeatureMismatch, f)
			}
			cols = append(cols, column{name: f, categorical: true})
		case model.IsNumeric(f):
			cols = append(cols, column{name: f})
		default:
			return nil, fmt.Errorf("%w: %q has no encoder and is not numeric", ErrFeatureMismatch, f)
		}
	}

	for _, f := range enc.Fields() {
		if _, ok := seen[f]; !ok {
			return nil, fmt.Errorf("%w: encoder field %q missing from feature list", ErrFeatureMismatch, f)
		}
	}
	for _, f := range model.NumericFields {
		if _, ok := seen[f]; !ok {
			return nil, fmt.Errorf("%w: numeric field %q missing from feature list", ErrFeatureMismatch, f)
		}
	}

	return &Assembler{enc: enc, columns: cols}, nil
}

// Width is the length of every assembled vector.
func (a *Assembler) Width() int { return len(a.columns) }

// Features returns the column names in order.
func (a *Assembler) Features() []string {
	out := make([]string, len(a.columns))
	for i, c := range a.columns {
		out[i] = c.name
	}
	return out
}

// Assemble encodes c into a fresh vector. Unknown categories surface as
// *model.FieldError.
func (a *Assembler) Assemble(c model.Customer) (model.FeatureVector, error) {
	v := make(model.FeatureVector, len(a.columns))
	for i, col := range a.columns {
		if !col.categorical {
			v[i], _ = c.Numeric(col.name)
			continue
		}
		raw, _ := c.Category(col.name)
		code, err := a.enc.Encode(col.name, raw)
		if err != nil {
			return nil, err
		}
		v[i] = float64(code)
	}
	return v, nil
}
