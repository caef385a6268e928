package links

import "errors"

var (
	// ErrMissingField is returned when a required link-config field is absent.
	ErrMissingField = errors.New("links: missing required field")

	// ErrAmbiguousField is returned when mutually-exclusive fields are both set.
	ErrAmbiguousField = errors.New("links: exactly one of the alternative fields must be set")

	// ErrTerminate is the non-error sentinel a `function` link raises to end
	// the recipe early (spec §4.4 function, §7 Early exit).
	ErrTerminate = errors.New("links: recipe terminated by function")
)
