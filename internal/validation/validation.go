// Package validation holds the error type returned for malformed or missing
// input across the quoting core.
package validation

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("validation failed")

// Error describes one rejected input field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrInvalid) hold for any *Error.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Errorf returns a validation error for field.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Collector accumulates independent validation problems so callers see all
// of them at once.
type Collector struct {
	err error
}

// Add records err when it is non-nil.
func (c *Collector) Add(err error) {
	c.err = multierr.Append(c.err, err)
}

// Check records a validation error for field when ok is false.
func (c *Collector) Check(ok bool, field, format string, args ...any) {
	if !ok {
		c.Add(Errorf(field, format, args...))
	}
}

// Err returns the combined error, or nil.
func (c *Collector) Err() error {
	return c.err
}

// Prefix nests the field of every validation error in err under prefix.
// Other errors are kept as they are.
func Prefix(prefix string, err error) error {
	var out error
	for _, e := range multierr.Errors(err) {
		var ve *Error
		if errors.As(e, &ve) {
			field := prefix
			if ve.Field != "" {
				field += "." + ve.Field
			}
			e = &Error{Field: field, Message: ve.Message}
		}
		out = multierr.Append(out, e)
	}
	return out
}

// Fields lists the field names of every validation error contained in err.
func Fields(err error) []string {
	var fields []string
	for _, e := range multierr.Errors(err) {
		var ve *Error
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	return fields
}
