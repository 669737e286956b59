// Package idgen generates opaque unique identifiers for jobs, events,
// metasheets, and workflows (component C1 of the middleware).
package idgen

import "github.com/google/uuid"

// New returns a new opaque unique identifier in long (36-character) form.
func New() string {
	return uuid.NewString()
}

// Short returns the first 8 characters of a freshly generated identifier,
// suitable for compact log correlation where collision risk is
// acceptable.
func Short() string {
	return New()[:8]
}
