// Package realtime pushes lead mutation events to connected sessions.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wolfman30/leadcrm/pkg/logging"
)

// LeadsChannel is the single broadcast group every verified session joins.
const LeadsChannel = "leads"

// DefaultBuffer is the per-session event buffer.
const DefaultBuffer = 64

// Event is one frame delivered to sessions.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals payload into an event.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Observer receives delivery statistics (see metrics.CRMMetrics).
type Observer interface {
	ObservePublished(event string)
	ObserveDropped()
	SessionJoined()
	SessionLeft()
}

// Relay forwards locally published events to other server instances.
type Relay interface {
	Forward(ctx context.Context, channel string, ev Event) error
}

// Subscription is one session's membership of a channel.
type Subscription struct {
	id      uint64
	channel string
	events  chan Event
}

// Events yields delivered events until the subscription leaves.
func (s *Subscription) Events() <-chan Event { return s.events }

func (s *Subscription) Channel() string { return s.channel }

// Hub is a publish/subscribe registry keyed by channel name. Delivery is
// at-most-once: a session whose buffer is full misses the event.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[uint64]*Subscription
	nextID   uint64
	relay    Relay
	observer Observer
	logger   *logging.Logger
}

func NewHub(observer Observer, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		channels: make(map[string]map[uint64]*Subscription),
		observer: observer,
		logger:   logger,
	}
}

// SetRelay enables cross-instance fan-out for Broadcast.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Join subscribes a new session to channel.
func (h *Hub) Join(channel string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.mu.Lock()
	h.nextID++
	sub := &Subscription{id: h.nextID, channel: channel, events: make(chan Event, buffer)}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[uint64]*Subscription)
		h.channels[channel] = members
	}
	members[sub.id] = sub
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SessionJoined()
	}
	return sub
}

// Leave removes sub and closes its event stream. Calling it twice is a no-op.
func (h *Hub) Leave(sub *Subscription) {
	h.mu.Lock()
	members := h.channels[sub.channel]
	if _, ok := members[sub.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(members, sub.id)
	if len(members) == 0 {
		delete(h.channels, sub.channel)
	}
	close(sub.events)
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SessionLeft()
	}
}

// Publish delivers ev to every local member of channel except the given
// subscription (may be nil). It never blocks and returns the delivery count.
func (h *Hub) Publish(channel string, ev Event, except *Subscription) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, sub := range h.channels[channel] {
		if except != nil && id == except.id {
			continue
		}
		select {
		case sub.events <- ev:
			delivered++
			if h.observer != nil {
				h.observer.ObservePublished(ev.Name)
			}
		default:
			if h.observer != nil {
				h.observer.ObserveDropped()
			}
			h.logger.Debug("realtime event dropped", "channel", channel, "event", ev.Name, "session", id)
		}
	}
	return delivered
}

// Broadcast publishes locally and forwards through the relay, if any.
// Relay failures are logged.
func (h *Hub) Broadcast(ctx context.Context, channel string, ev Event, except *Subscription) int {
	delivered := h.Publish(channel, ev, except)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Forward(ctx, channel, ev); err != nil {
			h.logger.Warn("realtime relay forward failed", "channel", channel, "event", ev.Name, "error", err)
		}
	}
	return delivered
}

// Sessions returns the number of local members of channel.
func (h *Hub) Sessions(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
