package worker

import (
	"context"
	"errors"
)

// Task is one periodic maintenance job.
type Task interface {
	// Name identifies the task in logs. It must be unique per worker.
	Name() string

	// Run performs one pass. Returning a PermanentError stops further runs.
	Run(ctx context.Context) error
}

// PermanentError marks a task failure that will not clear on its own.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the worker stops scheduling the task.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
