package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/aokimori/libretutor-backend/internal/services"
)

type ImportHandler struct {
  importService     services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
  return &ImportHandler{importService: importService}
}

// POST /api/import
func (ih *ImportHandler) ImportSession(c *gin.Context) {
  var req services.ImportSession
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  result, err := ih.importService.ImportSession(c.Request.Context(), &req)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "import_failed", err)
    return
  }
  RespondOK(c, result)
}
