package pokemon

import (
	"errors"
)

// Mapping errors. All of them are fatal for the batch the record belongs to.
var (
	// ErrMissingStat is returned when one of hp, attack, defense or speed is absent.
	ErrMissingStat = errors.New("missing stat")

	// ErrInvalidRecord is returned when a mapped record violates a record invariant.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrMalformedResponse is returned when a response body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrIDMismatch is returned when the response id differs from the requested id.
	ErrIDMismatch = errors.New("id mismatch")
)
