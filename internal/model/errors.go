package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-record input error.
type ErrorKind string

const (
	KindMissingField    ErrorKind = "MissingField"
	KindTypeMismatch    ErrorKind = "TypeMismatch"
	KindUnknownCategory ErrorKind = "UnknownCategory"
)

func (k ErrorKind) String() string { return string(k) }

// FieldError is a recoverable input error attached to one record.
type FieldError struct {
	Kind   ErrorKind
	Field  string
	Raw    string // offending value; empty for MissingField
	Reason string // replaces the default message when set
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing field %q", e.Field)
	case KindTypeMismatch:
		return fmt.Sprintf("field %q: %q is not a non-negative number", e.Field, e.Raw)
	case KindUnknownCategory:
		return fmt.Sprintf("field %q: unknown category %q", e.Field, e.Raw)
	default:
		return fmt.Sprintf("field %q: %s", e.Field, e.Kind)
	}
}

// AsFieldError unwraps err into a *FieldError.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ErrShapeMismatch means a feature vector does not have the width the model
// was trained on. It is a configuration error, never an input error.
var ErrShapeMismatch = errors.New("feature vector shape mismatch")
