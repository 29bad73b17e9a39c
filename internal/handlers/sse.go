package handlers

import (
  "net/http"
  "sync"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/sse"
)

// SSEHandler serves the event stream. One connection per user: a new stream
// replaces the previous one so a reconnecting tab never leaks clients.
type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub

  mu      sync.RWMutex
  clients map[uuid.UUID]*sse.SSEClient
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log:     log.With("handler", "SSEHandler"),
    hub:     hub,
    clients: make(map[uuid.UUID]*sse.SSEClient),
  }
}

// GET /api/sse/stream
func (h *SSEHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  userID := rd.UserID
  h.log.Info("SSE stream open", "user_id", userID.String())

  h.mu.Lock()
  if existing, ok := h.clients[userID]; ok {
    h.hub.CloseClient(existing)
    delete(h.clients, userID)
  }
  client := h.hub.NewSSEClient(userID)
  h.clients[userID] = client
  h.mu.Unlock()

  h.hub.AddChannel(client, sse.UserChannel(userID))

  h.hub.ServeHTTP(c.Writer, c.Request, client)

  h.mu.Lock()
  if h.clients[userID] == client {
    delete(h.clients, userID)
  }
  h.mu.Unlock()
  h.hub.CloseClient(client)
}

// POST /api/sse/subscribe
func (h *SSEHandler) SSESubscribe(c *gin.Context) {
  client, channel, ok := h.resolveClientAndChannel(c)
  if !ok {
    return
  }
  h.hub.AddChannel(client, channel)
  c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe
func (h *SSEHandler) SSEUnsubscribe(c *gin.Context) {
  client, channel, ok := h.resolveClientAndChannel(c)
  if !ok {
    return
  }
  h.hub.RemoveChannel(client, channel)
  c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *SSEHandler) resolveClientAndChannel(c *gin.Context) (*sse.SSEClient, string, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return nil, "", false
  }

  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return nil, "", false
  }

  h.mu.RLock()
  client, exists := h.clients[rd.UserID]
  h.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection"})
    return nil, "", false
  }
  return client, req.Channel, true
}
