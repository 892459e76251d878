package exception

import "errors"

// Request lifecycle errors delivered through RPC callbacks.
var (
	// ErrCancelled fails requests still outstanding when the client stops.
	ErrCancelled          = errors.New("request: cancelled at shutdown")
	ErrRequestTimeout     = errors.New("request: timed out")
	ErrUnknownCorrelation = errors.New("request: unknown correlation id")
)
