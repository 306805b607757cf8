package config

import "errors"

// ErrNotFound is returned when a requested record does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a source name is already taken.
var ErrDuplicate = errors.New("already exists")
