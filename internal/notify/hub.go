package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// Alert is an emergency broadcast pushed to connected dashboard clients.
type Alert struct {
	BloodType string    `json:"blood_type"`
	Message   string    `json:"message"`
	Location  string    `json:"location,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

const writeTimeout = 10 * time.Second

// subscriber pairs a connection with a write lock. A websocket connection
// supports at most one concurrent writer, so overlapping broadcasts must
// serialize their writes per connection.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans emergency alerts out to websocket subscribers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*subscriber
	log     *logger.Logger

	upgrader websocket.Upgrader
}

// NewHub creates an alert hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]*subscriber),
		log:     log.WithComponent("alerts"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket and keeps the connection
// subscribed until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &subscriber{conn: conn}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("alert subscriber connected", "subscribers", n)

	// the read loop only exists to notice the client closing
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes an alert to every connected client. Clients that fail to
// accept the write are dropped.
func (h *Hub) Broadcast(alert Alert) {
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		h.log.WithError(err).Error("failed to encode alert")
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for _, sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(payload); err != nil {
			h.remove(sub.conn)
		}
	}

	h.log.Info("alert broadcast",
		"blood_type", alert.BloodType,
		"subscribers", len(subs))
}

// Subscribers returns the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
