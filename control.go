package offcache

import (
	"sync"
	"time"
)

// MessageType tags a control message.
type MessageType string

// The complete control vocabulary. These are the only messages the proxy
// accepts or emits.
const (
	// foreground → proxy
	MsgClearCache       MessageType = "CLEAR_CACHE"
	MsgGetOfflineStatus MessageType = "GET_OFFLINE_STATUS"

	// proxy → foreground
	MsgCacheCleared  MessageType = "CACHE_CLEARED"
	MsgOfflineStatus MessageType = "OFFLINE_STATUS"
	MsgBackOnline    MessageType = "BACK_ONLINE"
)

// Message is a control-channel message. Which fields are meaningful depends
// on Type; messages are ephemeral and never persisted.
type Message struct {
	Type       MessageType `json:"type"`
	Partitions []string    `json:"partitions,omitempty"` // CLEAR_CACHE
	IsOffline  bool        `json:"isOffline,omitempty"`  // OFFLINE_STATUS
	Timestamp  time.Time   `json:"timestamp,omitempty"`  // BACK_ONLINE, CACHE_CLEARED
}

// Subscriber is one foreground context's receive side of the control
// channel. Messages from the proxy arrive on C in send order. Delivery is
// at-most-once: when the subscriber's buffer is full, new messages are
// dropped rather than blocking the proxy.
type Subscriber struct {
	id  uint64
	ch  chan Message
	hub *hub
}

// C returns the receive channel. It is closed when the subscriber or the
// proxy shuts down.
func (s *Subscriber) C() <-chan Message { return s.ch }

// Close detaches the subscriber. Safe to call once.
func (s *Subscriber) Close() { s.hub.remove(s.id) }

// hub is the explicit registry of foreground subscriber handles, with a
// broadcast primitive. Per-subscriber channels preserve per-sender order;
// no ordering is guaranteed across senders.
type hub struct {
	mu     sync.Mutex
	next   uint64
	subs   map[uint64]*Subscriber
	buf    int
	closed bool
}

func newHub(buf int) *hub {
	return &hub{subs: make(map[uint64]*Subscriber), buf: buf}
}

func (h *hub) subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	s := &Subscriber{id: h.next, ch: make(chan Message, h.buf), hub: h}
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s.id] = s
	return s
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

func (h *hub) broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		select {
		case s.ch <- m:
		default: // slow subscriber; drop (at-most-once)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
