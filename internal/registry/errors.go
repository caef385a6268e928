package registry

import "errors"

var (
	// ErrHandlerNotFound is returned when a link type has no registered handler.
	ErrHandlerNotFound = errors.New("registry: link handler not found")

	// ErrNotFound is the generic sentinel for schema/function/domain misses,
	// which callers other than link-handler lookup may tolerate (spec §4.1).
	ErrNotFound = errors.New("registry: not found")
)
