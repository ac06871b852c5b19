package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrSlotTaken = errors.New("time slot already reserved by another booking")

	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
