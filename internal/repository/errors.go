package repository

import "errors"

var (
	// ErrNotFound is returned when a requested task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrDuplicate is returned when an insert would create a second open
	// occurrence with the same description, user and due date.
	ErrDuplicate = errors.New("open occurrence already exists")
)
