package core

import (
	"errors"
	"sort"
	"strings"
)

// ErrValidation matches any *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError collects per-field problems found at the input boundary.
type ValidationError struct {
	Fields map[string]error
}

// Add records err for field. The first error recorded for a field wins.
func (v *ValidationError) Add(field string, err error) {
	if v.Fields == nil {
		v.Fields = make(map[string]error)
	}
	if _, exists := v.Fields[field]; exists {
		return
	}
	v.Fields[field] = err
}

// Merge copies the fields of another validation error, if err is one.
func (v *ValidationError) Merge(err error) {
	var other *ValidationError
	if errors.As(err, &other) {
		for _, f := range other.FieldNames() {
			v.Add(f, other.Fields[f])
		}
	}
}

// OrNil returns v as an error when it has at least one field, nil otherwise.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

// FieldNames returns the offending field names in sorted order.
func (v *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Messages returns field -> message, suitable for a JSON response.
func (v *ValidationError) Messages() map[string]string {
	out := make(map[string]string, len(v.Fields))
	for name, err := range v.Fields {
		out[name] = err.Error()
	}
	return out
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, name := range v.FieldNames() {
		parts = append(parts, name+": "+v.Fields[name].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap exposes the field errors to errors.Is and errors.As.
func (v *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(v.Fields))
	for _, name := range v.FieldNames() {
		errs = append(errs, v.Fields[name])
	}
	return errs
}
