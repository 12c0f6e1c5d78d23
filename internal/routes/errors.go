package routes

import "errors"

// Domain errors for the routes package.
var (
	// ErrNoTopics is returned when a table is built from an empty topic list.
	ErrNoTopics = errors.New("routes: no topics")

	// ErrInvalidTopic is returned for an empty topic or one containing
	// MQTT wildcards.
	ErrInvalidTopic = errors.New("routes: invalid topic")

	// ErrEmptyCommand is returned when a variant has no argument tokens.
	ErrEmptyCommand = errors.New("routes: empty command")

	// ErrNoVariants is returned when a topic has neither exact nor default variants.
	ErrNoVariants = errors.New("routes: topic has no variants")
)
