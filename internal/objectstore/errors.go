package objectstore

import "errors"

var (
	ErrObjectNotFound       = errors.New("object not found")
	ErrNoPriorityObject     = errors.New("no priority object exists")
	ErrIdentifiersExhausted = errors.New("object identifiers exhausted")
)
