package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vistta-org/fs/internal/watcher"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ChangePayload is the payload of a fileChange message.
type ChangePayload struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHandler streams file changes to WebSocket clients
type WSHandler struct {
	logger  *slog.Logger
	clients map[string]*wsClient
	mu      sync.RWMutex
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		logger:  logger,
		clients: make(map[string]*wsClient),
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{id: uuid.NewString(), conn: conn}
	defer func() {
		h.removeClient(client.id)
		_ = conn.Close()
	}()

	h.addClient(client)

	// Keep connection alive until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// OnFileChange broadcasts one changed path of the root with the given alias
func (h *WSHandler) OnFileChange(alias, path string) {
	h.broadcast(WSMessage{
		Type:    "fileChange",
		Payload: ChangePayload{Root: alias, Path: path},
	})
}

// Follow pulls changes from s and broadcasts them until the session ends
// or ctx is done.
func (h *WSHandler) Follow(ctx context.Context, m *Mount, s *watcher.Session) {
	for p := range s.Paths(ctx) {
		h.OnFileChange(m.Root.Alias, m.Relative(p))
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
	h.logger.Debug("websocket client connected", "client", client.id)
}

func (h *WSHandler) removeClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		h.logger.Debug("websocket client disconnected", "client", id)
	}
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.removeClient(client.id)
		}
	}
}
