// Package broadcast fans committed post changes out to connected websocket
// clients.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/gorilla/websocket"
)

const (
	// EventName is the channel name clients listen on.
	EventName = "posts"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message is the frame written to every observer.
type Message struct {
	Event string       `json:"event"`
	Data  models.Event `json:"data"`
}

type observer struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (o *observer) stop() {
	o.once.Do(func() {
		close(o.done)
		o.conn.Close()
	})
}

// Hub tracks the live observers of the posts channel. It holds no history:
// an observer only sees events published while it is connected.
type Hub struct {
	mu        sync.RWMutex
	observers map[*observer]struct{}
	closed    bool
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		observers: make(map[*observer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Publish delivers ev to every observer connected right now. It never blocks:
// an observer whose buffer is full misses this event.
func (h *Hub) Publish(ev models.Event) {
	payload, err := json.Marshal(Message{Event: EventName, Data: ev})
	if err != nil {
		h.log.Error("encoding broadcast", "action", ev.Action, "error", err)
		return
	}

	for _, o := range h.snapshot() {
		select {
		case o.send <- payload:
		case <-o.done:
		default:
			h.log.Warn("observer buffer full, dropping event", "action", ev.Action, "remote", o.conn.RemoteAddr().String())
		}
	}
}

func (h *Hub) snapshot() []*observer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*observer, 0, len(h.observers))
	for o := range h.observers {
		out = append(out, o)
	}
	return out
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	o := &observer{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(o) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.log.Info("client connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(o)
	h.readLoop(o)
}

func (h *Hub) register(o *observer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.observers[o] = struct{}{}
	return true
}

func (h *Hub) unregister(o *observer) {
	h.mu.Lock()
	delete(h.observers, o)
	h.mu.Unlock()
	o.stop()
}

// readLoop discards client frames; it exists to notice disconnects and
// answer pongs.
func (h *Hub) readLoop(o *observer) {
	defer func() {
		h.unregister(o)
		h.log.Info("client disconnected", "remote", o.conn.RemoteAddr().String())
	}()

	o.conn.SetReadLimit(512)
	_ = o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(o *observer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(o)
	}()

	for {
		select {
		case msg := <-o.send:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-o.done:
			return
		}
	}
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	observers := h.observers
	h.observers = make(map[*observer]struct{})
	h.mu.Unlock()

	for o := range observers {
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		o.stop()
	}
}
