// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Task and queue related errors.
var (
	ErrQueueFull     = errors.New("task queue is full")
	ErrTaskNotFound  = errors.New("task not found")
	ErrPoolStopped   = errors.New("worker pool is not running")
	ErrTaskCancelled = errors.New("task cancelled by user")
)

// Note processing errors.
var (
	ErrNoteNotFound  = errors.New("note not found")
	ErrEmptyNoteText = errors.New("note text is empty")
)

// Outbound call errors.
var (
	ErrRateLimitTimeout = errors.New("rate limiter timeout: no request slot available")
	ErrGenerationFailed = errors.New("text generation failed")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
