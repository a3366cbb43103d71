package session

import "errors"

var (
	ErrConnectionFailed = errors.New("connection to object store failed")
	ErrProtocolFailure  = errors.New("object store reported failure")
)
