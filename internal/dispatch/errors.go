package dispatch

import "errors"

var (
	// ErrNoRoutes is returned by New without a routing table.
	ErrNoRoutes = errors.New("dispatch: routing table is required")

	// ErrNoRunner is returned by New without an executor.
	ErrNoRunner = errors.New("dispatch: executor is required")

	// ErrNoPublisher is returned by New without a publisher.
	ErrNoPublisher = errors.New("dispatch: publisher is required")

	// ErrRejected is returned by HandleMessage for payloads that fail the
	// printable-character filter.
	ErrRejected = errors.New("dispatch: parameter rejected")

	// ErrUnrouted is returned by HandleMessage for topics missing from the table.
	ErrUnrouted = errors.New("dispatch: topic not routed")

	// ErrUnmatched is returned by HandleMessage when no variant matches.
	ErrUnmatched = errors.New("dispatch: no matching command")
)
