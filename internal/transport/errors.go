package transport

import "errors"

var (
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportWrite  = errors.New("transport write failed")
	ErrPayloadMismatch = errors.New("payload length does not match descriptor length")
	ErrBufferTooSmall  = errors.New("receive buffer smaller than response payload")
)
