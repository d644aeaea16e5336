package store

import "errors"

// Sentinel errors shared by all sub-stores. Callers match with errors.Is
// and translate them to service errors at the API boundary.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
)
