package tracer

import "errors"

var (
	ErrInvalidConfig      = errors.New("tracer: invalid configuration")
	ErrUnknownBackend     = errors.New("tracer: unknown backend")
	ErrResultSizeMismatch = errors.New("tracer: backend returned wrong number of rays")
)
