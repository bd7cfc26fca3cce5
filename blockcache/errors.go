package blockcache

import "github.com/pkg/errors"

// LoaderError wraps a failure returned directly to the caller that ran the
// loader: the designated-loader path of get_or_insert_with.
type LoaderError struct {
	Key   Key
	cause error
}

func (e *LoaderError) Error() string {
	return errors.Wrapf(e.cause, "blockcache: load %+v failed", e.Key).Error()
}
func (e *LoaderError) Unwrap() error { return e.cause }

// WaiterError wraps the same loader failure as observed by a caller that
// was waiting on someone else's in-flight load.
type WaiterError struct {
	Key   Key
	cause error
}

func (e *WaiterError) Error() string {
	return errors.Wrapf(e.cause, "blockcache: waiter for %+v observed loader failure", e.Key).Error()
}
func (e *WaiterError) Unwrap() error { return e.cause }
