package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
// Read returns the next data or control frame payload.
type Conn interface {
	Read(ctx context.Context) (msgType MessageType, payload []byte, err error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// MessageHandler consumes inbound data frames. It runs on the read loop
// goroutine and must not block on the connection it was called from.
type MessageHandler func(msgType MessageType, payload []byte)
