package exception

import "errors"

var (
	ErrConnectionFailed = errors.New("connection: connect or send failed")
	ErrConnectionLost   = errors.New("connection: lost")
)
