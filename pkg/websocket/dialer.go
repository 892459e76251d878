package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"
)

const (
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultPongWait is the read liveness window. A read deadline this far
	// ahead is re-armed on every inbound frame and pong.
	DefaultPongWait = 40 * time.Second
)

// DialConfig configures a WebSocket dialer.
type DialConfig struct {
	// URL is the endpoint, e.g. "wss://uat.zubr.io/api/v1/ws".
	URL string
	// Header is sent with the opening handshake request.
	Header http.Header
	// TLSConfig overrides the client TLS configuration.
	TLSConfig *tls.Config
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PongWait is the read liveness window. Zero disables read deadlines.
	PongWait time.Duration
	// ReadLimit caps the inbound frame size in bytes. Zero means no cap.
	ReadLimit int64
}

type dialer struct {
	cfg DialConfig
}

// NewDialer creates a Dialer for the given endpoint.
func NewDialer(cfg DialConfig) Dialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &dialer{cfg: cfg}
}

func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	wd := &gws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		TLSClientConfig:  d.cfg.TLSConfig,
	}
	conn, resp, err := wd.DialContext(ctx, d.cfg.URL, d.cfg.Header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("websocket: dial %s: %w", d.cfg.URL, err)
	}
	if d.cfg.ReadLimit > 0 {
		conn.SetReadLimit(d.cfg.ReadLimit)
	}
	if d.cfg.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d.cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(d.cfg.PongWait))
		})
	}
	return &wsConn{
		conn:         conn,
		writeTimeout: d.cfg.WriteTimeout,
		pongWait:     d.cfg.PongWait,
	}, nil
}

type wsConn struct {
	conn         *gws.Conn
	writeTimeout time.Duration
	pongWait     time.Duration
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	var readDeadline time.Time
	if c.pongWait > 0 {
		readDeadline = time.Now().Add(c.pongWait)
	}
	// A context deadline shorter than the liveness window wins, so bounded
	// reads (the login reply wait) actually return within their budget.
	if ctxDeadline, ok := ctx.Deadline(); ok && (readDeadline.IsZero() || ctxDeadline.Before(readDeadline)) {
		readDeadline = ctxDeadline
	}
	if !readDeadline.IsZero() {
		_ = c.conn.SetReadDeadline(readDeadline)
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	switch msgType {
	case MessagePing, MessagePong, MessageClose:
		return c.conn.WriteControl(int(msgType), payload, deadline)
	default:
		_ = c.conn.SetWriteDeadline(deadline)
		return c.conn.WriteMessage(int(msgType), payload)
	}
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	msg := gws.FormatCloseMessage(int(code), reason)
	_ = c.conn.WriteControl(gws.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
