package audit

import "errors"

var (
	// ErrNilDatabase is returned when the repository is built without a store.
	ErrNilDatabase = errors.New("audit: database is nil")

	// ErrMissingID is returned when an execution without an ID is recorded.
	ErrMissingID = errors.New("audit: execution id is required")
)
