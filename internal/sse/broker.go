// Package sse implements a Server-Sent Events broker for post change notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypePostCreated     = "post.created"
	TypePostUpdated     = "post.updated"
	TypePostDeleted     = "post.deleted"
	TypeManifestUpdated = "manifest.updated"
)

const (
	clientBuffer  = 64
	historySize   = 128
	heartbeatTick = 30 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event with its sequence number.
type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch     chan []byte
	lastID uint64
}

// op is a request handled on the broker loop.
type op func(*state)

// state is owned by the broker loop goroutine.
type state struct {
	clients      map[chan []byte]struct{}
	seq          uint64
	history      []frame
	lastManifest time.Time
	pending      bool // a manifest.updated is waiting for the throttle window
}

// Broker manages SSE client connections and broadcasts events.
//
// One loop goroutine owns the client set, the event sequence, the replay
// history and the manifest throttle. Public methods send it closures.
type Broker struct {
	manifestMin time.Duration
	heartbeat   time.Duration

	ops     chan op
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. manifest.updated is sent at most once per
// manifestThrottle; changes inside the window are announced when it ends.
func NewBroker(manifestThrottle time.Duration) *Broker {
	if manifestThrottle <= 0 {
		manifestThrottle = 2 * time.Second
	}
	b := &Broker{
		manifestMin: manifestThrottle,
		heartbeat:   heartbeatTick,
		ops:         make(chan op, 256),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go b.run()
	return b
}

func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

func postEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypePostCreated, true
	case "updated":
		return TypePostUpdated, true
	case "deleted":
		return TypePostDeleted, true
	}
	return "", false
}

func (s *state) broadcast(event Event) {
	raw, err := encode(s.seq+1, event)
	if err != nil {
		return
	}
	s.seq++
	s.history = append(s.history, frame{id: s.seq, raw: raw})
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	for ch := range s.clients {
		select {
		case ch <- raw:
		default:
			// Slow client; drop rather than block the loop.
		}
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	s := &state{clients: make(map[chan []byte]struct{})}
	var flush <-chan time.Time

	for {
		select {
		case <-b.stopCh:
			for ch := range s.clients {
				close(ch)
			}
			return

		case fn := <-b.ops:
			fn(s)
			if s.pending && flush == nil {
				flush = time.After(b.manifestMin - time.Since(s.lastManifest))
			}

		case <-flush:
			flush = nil
			s.pending = false
			s.lastManifest = time.Now()
			s.broadcast(Event{Type: TypeManifestUpdated, Data: map[string]string{}})
		}
	}
}

// do runs fn on the loop. It reports false once the broker is closed.
func (b *Broker) do(fn op) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- fn:
		return true
	case <-b.stopped:
		return false
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe(subscription{ch: make(chan []byte, clientBuffer)})
}

// SubscribeFrom adds a client and first replays the retained events with
// an id greater than lastID.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	return b.subscribe(subscription{ch: make(chan []byte, clientBuffer), lastID: lastID})
}

func (b *Broker) subscribe(sub subscription) chan []byte {
	done := make(chan struct{})
	ok := b.do(func(s *state) {
		defer close(done)
		if sub.lastID > 0 {
			for _, f := range s.history {
				if f.id <= sub.lastID {
					continue
				}
				select {
				case sub.ch <- f.raw:
				default:
				}
			}
		}
		s.clients[sub.ch] = struct{}{}
	})
	if !ok {
		close(sub.ch)
		return sub.ch
	}
	select {
	case <-done:
	case <-b.stopped:
	}
	return sub.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(s *state) {
		if _, ok := s.clients[ch]; ok {
			delete(s.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(s *state) { resp <- len(s.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(s *state) { s.broadcast(event) })
}

// PublishPostEvent publishes a post change followed by a throttled
// manifest.updated event. kind is "created", "updated" or "deleted"; other
// kinds are ignored.
func (b *Broker) PublishPostEvent(kind, file string) {
	typ, ok := postEventType(kind)
	if !ok {
		return
	}
	manifestMin := b.manifestMin
	b.do(func(s *state) {
		s.broadcast(Event{Type: typ, Data: map[string]string{"file": file}})
		if s.pending {
			return
		}
		if now := time.Now(); now.Sub(s.lastManifest) >= manifestMin {
			s.lastManifest = now
			s.broadcast(Event{Type: TypeManifestUpdated, Data: map[string]string{}})
			return
		}
		s.pending = true
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A Last-Event-ID
// header replays the events the client missed, as far as history allows.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
