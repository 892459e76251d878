package exception

import "errors"

var (
	// ErrLoginRequired is returned by operations that need credentials when
	// the client was built without an API key and secret.
	ErrLoginRequired = errors.New("login: api key and secret required")
	ErrLoginRejected = errors.New("login: rejected by server")
	ErrSecretFormat  = errors.New("login: api secret must be hex encoded")
)
