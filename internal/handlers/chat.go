package handlers

import (
  "encoding/json"
  "fmt"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/aokimori/libretutor-backend/internal/services"
)

type ChatHandler struct {
  chatService       services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
  return &ChatHandler{chatService: chatService}
}

// POST /api/chat/send
//
// Streams the reply as SSE: first event carries the session id, then one
// event per text chunk, then a [DONE] sentinel.
func (ch *ChatHandler) Send(c *gin.Context) {
  var req struct {
    BookID      string    `json:"book_id"`
    ChapterID   string    `json:"chapter_id"`
    SessionID   string    `json:"session_id"`
    Provider    string    `json:"provider"`
    Message     string    `json:"message"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  bookID, err := uuid.Parse(req.BookID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
    return
  }
  input := services.ChatSendInput{
    BookID:   bookID,
    Provider: req.Provider,
    Message:  req.Message,
  }
  if req.ChapterID != "" {
    chapterID, pErr := uuid.Parse(req.ChapterID)
    if pErr != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter_id"})
      return
    }
    input.ChapterID = &chapterID
  }
  if req.SessionID != "" {
    sessionID, pErr := uuid.Parse(req.SessionID)
    if pErr != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
      return
    }
    input.SessionID = &sessionID
  }

  w := c.Writer
  flusher, ok := w.(http.Flusher)
  if !ok {
    c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
    return
  }

  headersSent := false
  sendHeaders := func() {
    if headersSent {
      return
    }
    headersSent = true
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    w.Header().Set("X-Accel-Buffering", "no")
    w.WriteHeader(http.StatusOK)
  }
  writeData := func(payload any) error {
    raw, mErr := json.Marshal(payload)
    if mErr != nil {
      return mErr
    }
    if _, wErr := fmt.Fprintf(w, "data: %s\n\n", raw); wErr != nil {
      return wErr
    }
    flusher.Flush()
    return nil
  }

  err = ch.chatService.Send(c.Request.Context(), input,
    func(sessionID uuid.UUID) error {
      sendHeaders()
      return writeData(gin.H{"sessionId": sessionID})
    },
    func(chunk string) error {
      return writeData(gin.H{"content": chunk})
    },
  )
  if err != nil {
    if !headersSent {
      c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
      return
    }
    // Mid-stream failure: the status line is gone, report in-band.
    _ = writeData(gin.H{"error": err.Error()})
    return
  }

  sendHeaders()
  _, _ = fmt.Fprint(w, "data: [DONE]\n\n")
  flusher.Flush()
}

// POST /api/chat/clear-history
func (ch *ChatHandler) ClearHistory(c *gin.Context) {
  var req struct {
    SessionID     string    `json:"session_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  sessionID, err := uuid.Parse(req.SessionID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
    return
  }
  if err := ch.chatService.ClearHistory(c.Request.Context(), sessionID); err != nil {
    RespondError(c, http.StatusBadRequest, "clear_history_failed", err)
    return
  }
  RespondOK(c, gin.H{"message": "history cleared"})
}

// POST /api/chat/end-session
func (ch *ChatHandler) EndSession(c *gin.Context) {
  var req struct {
    SessionID     string    `json:"session_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  sessionID, err := uuid.Parse(req.SessionID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
    return
  }
  result, err := ch.chatService.EndSession(c.Request.Context(), sessionID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "end_session_failed", err)
    return
  }
  RespondOK(c, result)
}
