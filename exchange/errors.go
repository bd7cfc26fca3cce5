// Package exchange implements the merge-sort exchange operator: a k-way
// sorted merge pulling chunks from N remote shuffle sources and
// re-assembling them into a single globally-sorted stream of fixed-size
// columnar batches.
package exchange

import "github.com/pkg/errors"

// DecodeError wraps a failure to decode a serialized plan node at executor
// construction time.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string { return "exchange: decode plan node: " + e.cause.Error() }
func (e *DecodeError) Unwrap() error { return e.cause }

func newDecodeError(cause error) error {
	return &DecodeError{cause: errors.WithStack(cause)}
}

// ValidationError wraps a structurally valid but semantically invalid plan
// node: an empty source list, or a source schema mismatch.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return "exchange: validation: " + e.msg }

func newValidationError(format string, a ...any) error {
	return &ValidationError{msg: errors.Errorf(format, a...).Error()}
}

// SourceError wraps a failure returned by an ExchangeSource's TakeData.
type SourceError struct {
	SourceIdx int
	cause     error
}

func (e *SourceError) Error() string {
	return errors.Wrapf(e.cause, "exchange: source %d pull failed", e.SourceIdx).Error()
}
func (e *SourceError) Unwrap() error { return e.cause }

func newSourceError(idx int, cause error) error {
	return &SourceError{SourceIdx: idx, cause: cause}
}
