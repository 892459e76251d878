package exception

import "errors"

var (
	ErrOrderInvalidRequest         = errors.New("order: invalid request")
	ErrOrderUnsupportedSide        = errors.New("order: unsupported side")
	ErrOrderUnsupportedType        = errors.New("order: unsupported type")
	ErrOrderUnsupportedTimeInForce = errors.New("order: unsupported time in force")
)
