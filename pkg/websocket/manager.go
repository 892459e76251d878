package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrNilDialer          = errors.New("websocket: nil dialer")
	ErrNilHandler         = errors.New("websocket: nil message handler")
	ErrBadConfig          = errors.New("websocket: invalid config")
	ErrReconnectExhausted = errors.New("websocket: reconnect attempts exhausted")
)

// PermanentError marks an OnConnect failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Run returns it instead of reconnecting.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Config defines the manager runtime configuration.
type Config struct {
	Dialer         Dialer
	Handler        MessageHandler
	WriteQueueSize int
	WriteOverflow  OverflowPolicy
	PingInterval   time.Duration
	Backoff        Backoff

	// MaxAttempts caps consecutive failed connection attempts.
	// Zero retries forever.
	MaxAttempts int

	// OnConnect runs on the fresh connection before the pumps start. It may
	// read and write directly on conn to perform a handshake. Returning an
	// error triggers a reconnect unless the error is wrapped by Permanent.
	OnConnect func(ctx context.Context, conn Conn) error

	// OnDisconnect observes the session-ending error after each session.
	OnDisconnect func(err error)
}

// Manager owns the connection lifecycle: dial, handshake, pumps, reconnect.
type Manager struct {
	cfg       Config
	writer    *Writer
	connected atomic.Bool
}

// NewManager validates config and builds a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dialer == nil {
		return nil, ErrNilDialer
	}
	if cfg.Handler == nil {
		return nil, ErrNilHandler
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = 256
	}
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}
	return &Manager{
		cfg:    cfg,
		writer: NewWriter(cfg.WriteQueueSize, cfg.WriteOverflow),
	}, nil
}

// Run starts the connection lifecycle and blocks until ctx is done, the
// attempt budget is spent, or OnConnect fails permanently.
func (m *Manager) Run(ctx context.Context) error {
	if m == nil {
		return ErrBadConfig
	}
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := m.cfg.Dialer.Dial(ctx)
		if err != nil {
			attempt++
			if m.exhausted(attempt) {
				return fmt.Errorf("%w: %w", ErrReconnectExhausted, err)
			}
			m.sleepBackoff(ctx, attempt)
			continue
		}

		m.connected.Store(true)
		m.writer.SetConnected(true)

		if m.cfg.OnConnect != nil {
			if err := m.cfg.OnConnect(ctx, conn); err != nil {
				m.connected.Store(false)
				m.writer.SetConnected(false)
				m.writer.Drain()
				_ = conn.Close(CloseNormal, "on_connect_failed")
				if m.cfg.OnDisconnect != nil {
					m.cfg.OnDisconnect(err)
				}
				var perm *PermanentError
				if errors.As(err, &perm) {
					return perm.Err
				}
				attempt++
				if m.exhausted(attempt) {
					return fmt.Errorf("%w: %w", ErrReconnectExhausted, err)
				}
				m.sleepBackoff(ctx, attempt)
				continue
			}
		}

		attempt = 0
		err = m.runSession(ctx, conn)
		m.connected.Store(false)
		m.writer.SetConnected(false)
		m.writer.Drain()
		_ = conn.Close(CloseNormal, "session_end")
		if m.cfg.OnDisconnect != nil {
			m.cfg.OnDisconnect(err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		attempt++
		if m.exhausted(attempt) {
			return fmt.Errorf("%w: %w", ErrReconnectExhausted, err)
		}
		m.sleepBackoff(ctx, attempt)
	}
}

// Send enqueues an outbound message.
func (m *Manager) Send(msgType MessageType, payload []byte) error {
	if m == nil {
		return ErrBadConfig
	}
	if !m.connected.Load() {
		return ErrNotConnected
	}
	if !m.writer.Send(msgType, payload) {
		if !m.connected.Load() {
			return ErrNotConnected
		}
		return ErrQueueFull
	}
	return nil
}

// Connected reports whether a session is currently established.
func (m *Manager) Connected() bool {
	return m != nil && m.connected.Load()
}

func (m *Manager) exhausted(attempt int) bool {
	return m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts
}

func (m *Manager) runSession(ctx context.Context, conn Conn) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go m.readLoop(sessionCtx, conn, errCh)

	var ping <-chan time.Time
	if m.cfg.PingInterval > 0 {
		ticker := time.NewTicker(m.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case frame := <-m.writer.queue:
			if err := conn.Write(sessionCtx, frame.MsgType, frame.Payload); err != nil {
				return err
			}
		case <-ping:
			// Written directly: the pump is the queue's only consumer, so
			// enqueueing here could block the pump on itself.
			if err := conn.Write(sessionCtx, MessagePing, nil); err != nil {
				return err
			}
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, conn Conn, errCh chan<- error) {
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			errCh <- err
			return
		}
		if msgType != MessageText && msgType != MessageBinary {
			continue
		}
		m.cfg.Handler(msgType, payload)
	}
}

func (m *Manager) sleepBackoff(ctx context.Context, attempt int) {
	wait := m.cfg.Backoff.Next(attempt)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
