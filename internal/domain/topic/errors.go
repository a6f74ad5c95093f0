package topic

import "errors"

var (
	// ErrTopicNotFound is returned when a topic id was never allocated
	ErrTopicNotFound = errors.New("topic not found")

	// ErrInvalidState is returned when a topic is no longer IDLE
	ErrInvalidState = errors.New("invalid topic state")

	// ErrInvalidInput is returned when topic fields fail validation
	ErrInvalidInput = errors.New("invalid input")
)
