package queue

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not allowed by
	// the state machine. The job row is left untouched.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrJobNotFound is returned when a mutation targets an unknown job.
	ErrJobNotFound = errors.New("job not found")
)
