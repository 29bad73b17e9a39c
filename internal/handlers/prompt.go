package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/aokimori/libretutor-backend/internal/services"
)

type PromptHandler struct {
  promptService     services.PromptService
}

func NewPromptHandler(promptService services.PromptService) *PromptHandler {
  return &PromptHandler{promptService: promptService}
}

// GET /api/prompts
func (ph *PromptHandler) ListPrompts(c *gin.Context) {
  prompts, err := ph.promptService.ListPrompts(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadRequest, "list_prompts_failed", err)
    return
  }
  RespondOK(c, gin.H{"prompts": prompts})
}

// GET /api/prompts/default
func (ph *PromptHandler) GetDefaultPrompt(c *gin.Context) {
  prompt, err := ph.promptService.GetDefaultPrompt(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadRequest, "get_default_prompt_failed", err)
    return
  }
  RespondOK(c, gin.H{"prompt": prompt})
}

// POST /api/prompts
func (ph *PromptHandler) CreatePrompt(c *gin.Context) {
  var req struct {
    Name        string    `json:"name"`
    Content     string    `json:"content"`
    IsDefault   bool      `json:"is_default"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  prompt, err := ph.promptService.CreatePrompt(c.Request.Context(), req.Name, req.Content, req.IsDefault)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "create_prompt_failed", err)
    return
  }
  RespondOK(c, gin.H{"prompt": prompt})
}

// PUT /api/prompts/:id
func (ph *PromptHandler) UpdatePrompt(c *gin.Context) {
  promptID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_prompt_id", err)
    return
  }
  var req struct {
    Name        string    `json:"name"`
    Content     string    `json:"content"`
    IsDefault   bool      `json:"is_default"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  prompt, err := ph.promptService.UpdatePrompt(c.Request.Context(), promptID, req.Name, req.Content, req.IsDefault)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "update_prompt_failed", err)
    return
  }
  RespondOK(c, gin.H{"prompt": prompt})
}

// DELETE /api/prompts/:id
func (ph *PromptHandler) DeletePrompt(c *gin.Context) {
  promptID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_prompt_id", err)
    return
  }
  if err := ph.promptService.DeletePrompt(c.Request.Context(), promptID); err != nil {
    RespondError(c, http.StatusBadRequest, "delete_prompt_failed", err)
    return
  }
  RespondOK(c, gin.H{"message": "prompt deleted"})
}
