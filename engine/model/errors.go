package model

import "errors"

// Sentinel errors for record validation failures.
var (
	ErrMissingID       = errors.New("missing id")
	ErrUnknownType     = errors.New("unknown node type")
	ErrMissingGeometry = errors.New("missing geometry")
	ErrUnknownGeometry = errors.New("unknown geometry type")
	ErrDanglingEdge    = errors.New("relationship endpoint not in batch")
)
