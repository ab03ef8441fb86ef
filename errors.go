package jobsystem

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scheduler's fatal conditions. All three are
// programmer errors, not run-time conditions a caller should retry
// around: a pool sized for peak fan-out should never exhaust, a worker
// should never re-enter RunJob, and a functor capture should never
// exceed the inline budget it was designed against.
var (
	ErrPoolExhausted       = errors.New("pool exhausted: size the pool for peak fan-out")
	ErrAmbientJobViolation = errors.New("RunJob called while a job is already running on this worker")
	ErrFunctorOversize     = errors.New("functor capture exceeds inline capacity")
)

// SchedulerError wraps a fatal scheduler condition with the operation
// that triggered it. The scheduler never returns one of these as an
// error value — it panics with it instead, treating the condition as a
// hard assertion, but in a form a host process can recover() at its own
// outer boundary instead of calling os.Exit.
type SchedulerError struct {
	Op  string
	Err error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("jobsystem: %s: %v", e.Op, e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error) {
	panic(&SchedulerError{Op: op, Err: err})
}
