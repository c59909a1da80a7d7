package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPositionOpen is returned when attempting to open a position for
	// a mint that already has one. At most one open position per token.
	ErrPositionOpen = errors.New("position already open for mint")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
