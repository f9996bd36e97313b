package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local-first server, allow all origins
	},
}

// wsEvent is the wire shape pushed to websocket clients.
type wsEvent struct {
	Type       string      `json:"type"`
	JobID      string      `json:"job_id"`
	URL        string      `json:"url,omitempty"`
	PluginName string      `json:"plugin_name,omitempty"`
	Error      string      `json:"error,omitempty"`
	Metrics    interface{} `json:"metrics,omitempty"`
}

// WebSocketHandler streams engine events to connected clients.
type WebSocketHandler struct {
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
	logger      arbor.ILogger
}

func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
		logger:      logger,
	}
	events.SubscribeAll(h.broadcast)
	return h
}

// HandleWebSocket upgrades the connection and registers the client
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Reader loop: discard inbound messages, detect disconnect.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast pushes one event to every connected client. Send happens on
// the publisher's goroutine; per-connection mutexes serialize writes.
func (h *WebSocketHandler) broadcast(event interfaces.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	message := wsEvent{
		Type:       string(event.Type),
		JobID:      event.JobID,
		URL:        event.URL,
		PluginName: event.PluginName,
		Error:      event.ErrorMessage(),
		Metrics:    event.Metrics,
	}

	for _, conn := range conns {
		h.mu.RLock()
		mutex := h.clientMutex[conn]
		h.mu.RUnlock()
		if mutex == nil {
			continue
		}

		mutex.Lock()
		err := conn.WriteJSON(message)
		mutex.Unlock()

		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
			h.remove(conn)
		}
	}
}

// Shutdown closes all client connections
func (h *WebSocketHandler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.clientMutex = make(map[*websocket.Conn]*sync.Mutex)
}
