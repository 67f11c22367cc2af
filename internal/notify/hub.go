package notify

import (
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// EventKind identifies the state change being announced to observers.
type EventKind string

const (
	EventAnnouncement EventKind = "announcement"
	EventProgress     EventKind = "progressbar"
	EventSchedule     EventKind = "upcomingevents"
	EventStageUpdate  EventKind = "stageupdate"
	EventStageLive    EventKind = "stagelive"
)

// Message is the envelope pushed to observers. It carries only the kind of
// change; observers re-query the REST surface for the data itself.
type Message struct {
	Type EventKind `json:"type"`
}

// Publisher publishes events for cross-instance broadcast.
type Publisher interface {
	PublishEvent(kind EventKind) error
}

// Subscriber subscribes to the venue event channel and invokes handler for
// incoming events.
type Subscriber interface {
	SubscribeEvents(handler func(kind EventKind)) (cancel func(), err error)
}

// Hub owns the registry of connected observers and broadcasts change events to
// all of them. Delivery is at-most-once, best-effort: a slow observer's
// message is dropped, a dead observer is pruned when its connection fails.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	cancel  func()
}

// NewHub creates a notification hub. When sub is non-nil the hub also relays
// events published by other instances.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
	}
	if sub != nil {
		cancel, err := sub.SubscribeEvents(func(kind EventKind) {
			h.broadcastLocal(kind)
		})
		if err != nil {
			logger.Warn("event subscription failed, cross-instance relay disabled", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	return h
}

// Register adds an observer to the registry.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("observer connected", zap.String("client_id", c.ID), zap.Int("observers", n))
}

// Unregister removes an observer from the registry.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("observer disconnected", zap.String("client_id", c.ID), zap.Int("observers", n))
}

// Broadcast pushes a change event to every connected observer on every
// instance. With a publisher configured the event goes through Redis only;
// the subscription callback performs the local delivery exactly once, so
// observers on the publishing instance do not see duplicates.
func (h *Hub) Broadcast(kind EventKind) {
	if h.pub != nil && h.cancel != nil {
		if err := h.pub.PublishEvent(kind); err == nil {
			return
		} else {
			h.logger.Warn("event publish failed, falling back to local broadcast",
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	h.broadcastLocal(kind)
}

func (h *Hub) broadcastLocal(kind EventKind) {
	msg := Message{Type: kind}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the cross-instance relay and disconnects all observers. Called
// at shutdown.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}
