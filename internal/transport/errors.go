package transport

import "errors"

var (
	ErrClosed      = errors.New("transport: closed")
	ErrUnknownKind = errors.New("transport: unknown kind")
	ErrUnsupported = errors.New("transport: unsupported on this platform")
)
