package zubr

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type pendingRequest struct {
	callback  RPCCallback
	createdAt time.Time
	// sent marks entries whose frame reached the transport. Queued entries
	// wait for the next login and survive disconnects.
	sent bool
}

// correlationTable owns pending request entries and channel registrations.
// Ids are process-monotonic and never reused, so a late reply can never
// resolve a newer request.
type correlationTable struct {
	seq      atomic.Int64
	mu       sync.Mutex
	pending  map[int64]*pendingRequest
	channels map[string]ChannelCallback
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{
		pending:  make(map[int64]*pendingRequest),
		channels: make(map[string]ChannelCallback),
	}
}

// allocID returns a fresh correlation id, starting from 1.
func (t *correlationTable) allocID() int64 {
	return t.seq.Add(1)
}

// track stores a pending entry. A nil callback swallows the reply.
func (t *correlationTable) track(id int64, cb RPCCallback, sent bool, now time.Time) {
	t.mu.Lock()
	t.pending[id] = &pendingRequest{callback: cb, createdAt: now, sent: sent}
	t.mu.Unlock()
}

func (t *correlationTable) markSent(id int64) {
	t.mu.Lock()
	if p, ok := t.pending[id]; ok {
		p.sent = true
	}
	t.mu.Unlock()
}

// markQueued flips a pending entry back to queued state. It reports
// whether the entry still exists; a disconnect may have failed it already.
func (t *correlationTable) markQueued(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if ok {
		p.sent = false
	}
	return ok
}

func (t *correlationTable) remove(id int64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// resolve pops the entry for id. ok is false for unknown or already
// resolved ids; the callback fires at most once because the pop happens
// under the lock.
func (t *correlationTable) resolve(id int64) (RPCCallback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if !ok {
		return nil, false
	}
	delete(t.pending, id)
	return p.callback, true
}

// failSent pops every wire-sent entry, leaving queued ones for replay.
func (t *correlationTable) failSent() []RPCCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	var callbacks []RPCCallback
	for id, p := range t.pending {
		if !p.sent {
			continue
		}
		callbacks = append(callbacks, p.callback)
		delete(t.pending, id)
	}
	return callbacks
}

// failAll pops everything, queued entries included.
func (t *correlationTable) failAll() []RPCCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	callbacks := make([]RPCCallback, 0, len(t.pending))
	for id, p := range t.pending {
		callbacks = append(callbacks, p.callback)
		delete(t.pending, id)
	}
	return callbacks
}

// expire pops sent entries created before cutoff. Queued entries never
// expire; they flush with the next login.
func (t *correlationTable) expire(cutoff time.Time) []RPCCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	var callbacks []RPCCallback
	for id, p := range t.pending {
		if !p.sent || !p.createdAt.Before(cutoff) {
			continue
		}
		callbacks = append(callbacks, p.callback)
		delete(t.pending, id)
	}
	return callbacks
}

func (t *correlationTable) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// setChannel stores or replaces a registration. The last registration
// wins. It reports whether the channel is new.
func (t *correlationTable) setChannel(name string, cb ChannelCallback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.channels[name]
	t.channels[name] = cb
	return !exists
}

func (t *correlationTable) removeChannel(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.channels[name]
	delete(t.channels, name)
	return exists
}

func (t *correlationTable) channel(name string) (ChannelCallback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.channels[name]
	return cb, ok
}

// channelNames snapshots registered channels in stable order for replay.
func (t *correlationTable) channelNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.channels))
}
