package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/orinaya/animochi-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Hub fans quest and wallet events out to a user's open sockets. Delivery is
// best effort; a failed write drops the connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*websocket.Conn]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[int64]map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *Hub) register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	h.conns[userID][conn] = &sync.Mutex{}
}

func (h *Hub) unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

func (h *Hub) Notify(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Logger().Error("failed to marshal ws message", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.conns[userID]))
	for conn, mu := range h.conns[userID] {
		targets[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range targets {
		mu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mu.Unlock()
		if err != nil {
			h.unregister(userID, conn)
			_ = conn.Close()
		}
	}
}

type wsRoutes struct {
	hub *Hub
}

func NewWSRoutes(handler *gin.RouterGroup, hub *Hub) {
	r := &wsRoutes{hub: hub}
	h := handler.Group("/ws")

	h.GET("/:user_id", r.handleWebSocket)
}

func (r *wsRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	r.hub.register(userID, conn)

	go func() {
		defer func() {
			r.hub.unregister(userID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Info("websocket closed unexpectedly", zap.Int64("user_id", userID), zap.Error(err))
				}
				return
			}
		}
	}()
}
