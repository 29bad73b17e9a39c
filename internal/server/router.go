package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/aokimori/libretutor-backend/internal/handlers"
  "github.com/aokimori/libretutor-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  UserHandler       *handlers.UserHandler
  BookHandler       *handlers.BookHandler
  ChatHandler       *handlers.ChatHandler
  PromptHandler     *handlers.PromptHandler
  ReviewHandler     *handlers.ReviewHandler
  ImportHandler     *handlers.ImportHandler
  SSEHandler        *handlers.SSEHandler
  AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  allowOrigins := cfg.AllowOrigins
  if len(allowOrigins) == 0 {
    allowOrigins = []string{"http://localhost:3000"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
  protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
  protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)
  protected.PUT("/user", cfg.UserHandler.UpdateMe)
  // Books
  protected.GET("/books", cfg.BookHandler.ListBooks)
  protected.GET("/books/:id", cfg.BookHandler.GetBook)
  protected.DELETE("/books/:id", cfg.BookHandler.DeleteBook)
  protected.POST("/books/process-pdf", cfg.BookHandler.ProcessPDF)
  protected.POST("/books/:id/process-chapter", cfg.BookHandler.ProcessChapter)
  // Chat
  protected.POST("/chat/send", cfg.ChatHandler.Send)
  protected.POST("/chat/clear-history", cfg.ChatHandler.ClearHistory)
  protected.POST("/chat/end-session", cfg.ChatHandler.EndSession)
  // Prompts
  protected.GET("/prompts", cfg.PromptHandler.ListPrompts)
  protected.GET("/prompts/default", cfg.PromptHandler.GetDefaultPrompt)
  protected.POST("/prompts", cfg.PromptHandler.CreatePrompt)
  protected.PUT("/prompts/:id", cfg.PromptHandler.UpdatePrompt)
  protected.DELETE("/prompts/:id", cfg.PromptHandler.DeletePrompt)
  // Reviews
  protected.POST("/reviews", cfg.ReviewHandler.RecordReview)
  protected.GET("/reviews/today", cfg.ReviewHandler.DueToday)
  // Import
  protected.POST("/import", cfg.ImportHandler.ImportSession)

  return router
}
