package service

import "errors"

var (
	// ErrNotFound is returned when an operation references an unknown job, equipment or stage.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAssignment is returned when a job cannot run on the requested equipment or time.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrMalformedCommand is returned when a drag/move payload fails to parse or validate.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrDependencyNotSatisfied is returned when a stage is started before its prerequisites complete.
	ErrDependencyNotSatisfied = errors.New("dependency not satisfied")
	// ErrInvalidTransition is returned for job status changes outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation is returned when a new or updated record breaks a model invariant.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate is returned when a job id is already registered.
	ErrDuplicate = errors.New("already exists")
)
