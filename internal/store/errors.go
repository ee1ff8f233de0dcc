package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned when a version was changed by someone else since it was read.
	ErrStaleState = errors.New("version was modified concurrently")
	// ErrPolicyNotFound is returned when an organization has no expiration policy for a family.
	ErrPolicyNotFound = errors.New("expiration policy not found")
)
