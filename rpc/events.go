package rpc

import (
	"strings"
	"sync"

	"judged/core/events"
	"judged/core/types"
)

const defaultFeedCapacity = 1024

// EventFeed retains recent judge events in a bounded ring so observers can
// poll them over RPC. It implements events.Emitter.
type EventFeed struct {
	mu       sync.RWMutex
	entries  []*types.Event
	capacity int
}

// NewEventFeed creates a feed retaining up to capacity events; zero or
// negative capacity falls back to the default.
func NewEventFeed(capacity int) *EventFeed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	return &EventFeed{capacity: capacity}
}

type eventCarrier interface {
	Event() *types.Event
}

// Emit implements events.Emitter.
func (f *EventFeed) Emit(evt events.Event) {
	carrier, ok := evt.(eventCarrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, payload)
	if len(f.entries) > f.capacity {
		// Copy into a fresh slice so evicted events stop being reachable
		// through the old backing array.
		trimmed := make([]*types.Event, f.capacity)
		copy(trimmed, f.entries[len(f.entries)-f.capacity:])
		f.entries = trimmed
	}
}

// List returns the most recent events whose type carries the given prefix,
// newest first, capped at limit when limit is positive.
func (f *EventFeed) List(prefix string, limit int) []*types.Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*types.Event, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		evt := f.entries[i]
		if prefix != "" && !strings.HasPrefix(evt.Type, prefix) {
			continue
		}
		out = append(out, evt)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
