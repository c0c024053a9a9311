// Package errs defines the error kinds shared by every resilience
// primitive, following the teacher's convention of small exported error
// structs (see connlimit.MaxConnError) instead of sentinel errors.New
// values, so callers can use errors.As to branch on the rejecting gate.
package errs

import "fmt"

// InvalidArgumentError reports out-of-range construction parameters or a
// reduce() call over mismatched bucket-array lengths.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

// NewInvalidArgument builds an InvalidArgumentError.
func NewInvalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// RejectedError reports a primitive refusing admission: a semaphore out of
// permits, a thread pool with a full queue, or a breaker that is open.
// Counters is a snapshot of the window counters observed at rejection time.
type RejectedError struct {
	Gate     string
	Counters map[string]int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by %s: %v", e.Gate, e.Counters)
}

// NewRejected builds a RejectedError for the named gate.
func NewRejected(gate string, counters map[string]int64) error {
	return &RejectedError{Gate: gate, Counters: counters}
}

// TimeoutError reports a thread-pool task that did not complete within its
// deadline.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "timeout"
	}
	return fmt.Sprintf("timeout: %s", e.Message)
}

// NewTimeout builds a TimeoutError.
func NewTimeout(format string, args ...interface{}) error {
	return &TimeoutError{Message: fmt.Sprintf(format, args...)}
}
