package alert

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// TextMessage is the websocket text frame opcode (RFC 6455).
const TextMessage = 1

var ErrHubClosed = errors.New("alert hub closed")

// Broadcaster is what the ingestion coordinator and session finalizer depend
// on. Delivery is best-effort fan-out, not a durable queue.
type Broadcaster interface {
	Publish(event Event)
}

// Conn is the minimal transport surface an observer connection must expose.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type observer struct {
	userID string
	conn   Conn
}

// Hub fans classification events out to registered observers. Publish never
// blocks the caller: events go through a buffered channel drained by a single
// dispatch goroutine, and a full buffer drops the event with a log line.
type Hub struct {
	mu        sync.Mutex
	observers map[uuid.UUID]*observer
	closed    bool

	events    chan Event
	closeOnce sync.Once
	done      chan struct{}
}

func NewHub(bufferSize int) *Hub {
	h := &Hub{
		observers: make(map[uuid.UUID]*observer),
		events:    make(chan Event, bufferSize),
		done:      make(chan struct{}),
	}
	go h.dispatchLoop()
	return h
}

// Register sends the CONNECTED acknowledgment and adds the connection to the
// broadcast set, so the ack always precedes any alert on that connection.
// The returned func unregisters (idempotent, safe from the read loop).
func (h *Hub) Register(userID string, conn Conn) (func(), error) {
	ack, err := json.Marshal(Event{Type: EventTypeConnected, UserID: userID})
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(TextMessage, ack); err != nil {
		return nil, err
	}

	id := uuid.New()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.observers[id] = &observer{userID: userID, conn: conn}
	count := len(h.observers)
	h.mu.Unlock()
	slog.Info("observer registered", "user_id", userID, "observers", count)

	var once sync.Once
	return func() {
		once.Do(func() { h.unregister(id) })
	}, nil
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	obs, ok := h.observers[id]
	delete(h.observers, id)
	count := len(h.observers)
	h.mu.Unlock()
	if ok {
		_ = obs.conn.Close()
		slog.Info("observer unregistered", "user_id", obs.userID, "observers", count)
	}
}

func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	case <-h.done:
	default:
		slog.Warn("alert buffer full; dropping event", "type", event.Type, "session_id", event.SessionID)
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		observers := h.observers
		h.observers = make(map[uuid.UUID]*observer)
		h.mu.Unlock()
		for _, obs := range observers {
			_ = obs.conn.Close()
		}
		close(h.done)
	})
}

func (h *Hub) dispatchLoop() {
	for {
		select {
		case event := <-h.events:
			h.broadcast(event)
		case <-h.done:
			return
		}
	}
}

// broadcast serializes the event once and writes it to every registered
// connection. A failed peer is reaped; it never aborts delivery to others.
func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode alert event", "error", err, "type", event.Type)
		return
	}

	h.mu.Lock()
	targets := make(map[uuid.UUID]*observer, len(h.observers))
	for id, obs := range h.observers {
		targets[id] = obs
	}
	h.mu.Unlock()

	var broken []uuid.UUID
	for id, obs := range targets {
		if err := obs.conn.WriteMessage(TextMessage, payload); err != nil {
			slog.Warn("alert delivery failed; reaping observer", "error", err, "user_id", obs.userID)
			broken = append(broken, id)
		}
	}
	for _, id := range broken {
		h.unregister(id)
	}
}
