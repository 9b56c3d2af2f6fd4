package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrScopeMissing indicates the tenant/branch scope was not resolved.
	ErrScopeMissing = errors.New("tenant scope missing")
)
