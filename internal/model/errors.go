package model

import "github.com/pkg/errors"

// ErrShapeMismatch is returned when a caller submits a tensor whose length doesn't
// match the dimensions a network was configured with. It is always a construction
// or caller bug, never a runtime condition to retry.
var ErrShapeMismatch = errors.New("model: input shape mismatch")

// ErrInferenceFailed wraps a failure that occurred while running a network, e.g. a
// panic recovered from the gomlx executor.
type ErrInferenceFailed struct {
	Op    string
	Cause error
}

func (e *ErrInferenceFailed) Error() string {
	return errors.Wrapf(e.Cause, "model: %s inference failed", e.Op).Error()
}

func (e *ErrInferenceFailed) Unwrap() error { return e.Cause }
