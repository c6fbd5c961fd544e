package repository

import "errors"

var (
	// ErrNotFound is returned when no header matches the requested id
	ErrNotFound = errors.New("invoice not found")

	// ErrNoInsertID is returned when the store yields no generated id
	// after a header insert; the line insert cannot proceed without it
	ErrNoInsertID = errors.New("no id returned after header insert")
)
