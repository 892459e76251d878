package exception

import "errors"

// Protocol errors
var (
	ErrProtocol            = errors.New("protocol: malformed frame")
	ErrSubscriptionInvalid = errors.New("protocol: invalid channel")
)
