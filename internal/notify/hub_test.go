package notify

import (
	"testing"

	"go.uber.org/zap"
)

func newTestClient(id string, buf int) *Client {
	return &Client{ID: id, send: make(chan Message, buf)}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	a := newTestClient("a", 4)
	b := newTestClient("b", 4)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(EventAnnouncement)

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != EventAnnouncement {
				t.Fatalf("client %s: got %q want %q", c.ID, msg.Type, EventAnnouncement)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHub_BroadcastSkipsFullBuffers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	slow := newTestClient("slow", 1)
	hub.Register(slow)

	hub.Broadcast(EventSchedule)
	hub.Broadcast(EventStageLive) // buffer full, dropped

	if got := len(slow.send); got != 1 {
		t.Fatalf("expected 1 buffered message, got %d", got)
	}
	if msg := <-slow.send; msg.Type != EventSchedule {
		t.Fatalf("expected first event to survive, got %q", msg.Type)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	c := newTestClient("c", 1)
	hub.Register(c)
	if hub.ObserverCount() != 1 {
		t.Fatalf("expected 1 observer, got %d", hub.ObserverCount())
	}
	hub.Unregister(c)
	if hub.ObserverCount() != 0 {
		t.Fatalf("expected 0 observers, got %d", hub.ObserverCount())
	}

	// broadcast to an empty registry is a no-op
	hub.Broadcast(EventProgress)
}

type fakePublisher struct {
	events []EventKind
	err    error
}

func (f *fakePublisher) PublishEvent(kind EventKind) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, kind)
	return nil
}

type fakeSubscriber struct {
	handler func(kind EventKind)
}

func (f *fakeSubscriber) SubscribeEvents(handler func(kind EventKind)) (func(), error) {
	f.handler = handler
	return func() {}, nil
}

func TestHub_PublishesOnceThroughBus(t *testing.T) {
	pub := &fakePublisher{}
	sub := &fakeSubscriber{}
	hub := NewHub(zap.NewNop(), pub, sub)

	c := newTestClient("c", 4)
	hub.Register(c)

	hub.Broadcast(EventStageUpdate)

	// Local delivery only happens when the bus echoes the event back.
	if len(c.send) != 0 {
		t.Fatal("expected no direct local delivery when the bus is up")
	}
	if len(pub.events) != 1 || pub.events[0] != EventStageUpdate {
		t.Fatalf("expected one published event, got %v", pub.events)
	}

	sub.handler(EventStageUpdate)
	select {
	case msg := <-c.send:
		if msg.Type != EventStageUpdate {
			t.Fatalf("got %q want %q", msg.Type, EventStageUpdate)
		}
	default:
		t.Fatal("expected relayed delivery")
	}
}
