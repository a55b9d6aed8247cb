// Package encoder maps validated records onto the feature vector the
// classifier was trained on.
package encoder

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

// Classes is the training-time class list of one categorical field; the code
// of a value is its position in the list.
type Classes []string

// Encoder is immutable after construction and safe for concurrent use.
type Encoder struct {
	version string
	codes   map[string]map[string]int
}

// Artifact is the on-disk form of the encoding maps.
type Artifact struct {
	Version string             `json:"version"`
	Fields  map[string]Classes `json:"fields"`
}

// New builds an Encoder from per-field class lists.
func New(version string, fields map[string]Classes) (*Encoder, error) {
	codes := make(map[string]map[string]int, len(fields))
	for field, classes := range fields {
		if len(classes) == 0 {
			return nil, fmt.Errorf("encoder: field %q has no classes", field)
		}
		m := make(map[string]int, len(classes))
		for i, c := range classes {
			if _, dup := m[c]; dup {
				return nil, fmt.Errorf("encoder: field %q lists %q twice", field, c)
			}
			m[c] = i
		}
		codes[field] = m
	}
	return &Encoder{version: version, codes: codes}, nil
}

// Load decodes an encoders.json artifact.
func Load(r io.Reader) (*Encoder, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}
	return New(a.Version, a.Fields)
}

func (e *Encoder) Version() string { return e.version }

// Encode returns the trained code for raw, or an UnknownCategory error.
func (e *Encoder) Encode(field, raw string) (int, error) {
	m, ok := e.codes[field]
	if !ok {
		return 0, &model.FieldError{Kind: model.KindUnknownCategory, Field: field, Raw: raw}
	}
	code, ok := m[raw]
	if !ok {
		return 0, &model.FieldError{Kind: model.KindUnknownCategory, Field: field, Raw: raw}
	}
	return code, nil
}

// Fields returns the encoded field names, sorted.
func (e *Encoder) Fields() []string {
	out := make([]string, 0, len(e.codes))
	for f := range e.codes {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Domain returns the known values of field in code order.
func (e *Encoder) Domain(field string) []string {
	m, ok := e.codes[field]
	if !ok {
		return nil
	}
	out := make([]string, len(m))
	for v, code := range m {
		out[code] = v
	}
	return out
}

func (e *Encoder) has(field string) bool {
	_, ok := e.codes[field]
	return ok
}
