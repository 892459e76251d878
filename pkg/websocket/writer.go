package websocket

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrNotConnected is returned when sending while the transport is down.
	ErrNotConnected = errors.New("websocket: not connected")
	// ErrQueueFull is returned when the outbound queue cannot accept more frames.
	ErrQueueFull = errors.New("websocket: outbound queue full")
)

// OutboundFrame is a queued write payload.
type OutboundFrame struct {
	MsgType MessageType
	Payload []byte
}

// Writer provides a bounded outbound queue gated on connection state.
type Writer struct {
	queue     chan OutboundFrame
	policy    OverflowPolicy
	connected atomic.Bool
}

// NewWriter creates a Writer with a bounded queue.
func NewWriter(capacity int, policy OverflowPolicy) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{
		queue:  make(chan OutboundFrame, capacity),
		policy: policy,
	}
}

// SetConnected toggles the writer connection state.
func (w *Writer) SetConnected(connected bool) {
	w.connected.Store(connected)
}

// Send enqueues a payload for writing according to the overflow policy.
// It returns false when the writer is disconnected or the queue rejects
// the frame.
func (w *Writer) Send(msgType MessageType, payload []byte) bool {
	if !w.connected.Load() {
		return false
	}
	frame := OutboundFrame{MsgType: msgType, Payload: payload}
	switch w.policy {
	case OverflowBlock:
		w.queue <- frame
		return true
	case OverflowDropOldest:
		for {
			select {
			case w.queue <- frame:
				return true
			default:
				select {
				case <-w.queue:
				default:
					return false
				}
			}
		}
	default:
		select {
		case w.queue <- frame:
			return true
		default:
			return false
		}
	}
}

// Next waits for the next outbound frame or context cancellation.
func (w *Writer) Next(ctx context.Context) (OutboundFrame, bool) {
	select {
	case <-ctx.Done():
		return OutboundFrame{}, false
	case frame := <-w.queue:
		return frame, true
	}
}

// Drain discards all queued frames.
func (w *Writer) Drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}
