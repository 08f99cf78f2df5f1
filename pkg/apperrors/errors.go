package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQueueFull         = errors.New("generation queue is full")
	ErrQueueClosed       = errors.New("generation queue is shut down")
)
