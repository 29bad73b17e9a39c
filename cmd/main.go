package main

import (
  "context"
  "fmt"
  "os"
  "strings"
  "time"
  "github.com/aokimori/libretutor-backend/internal/clients/pinecone"
  "github.com/aokimori/libretutor-backend/internal/db"
  "github.com/aokimori/libretutor-backend/internal/handlers"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/middleware"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/server"
  "github.com/aokimori/libretutor-backend/internal/services"
  "github.com/aokimori/libretutor-backend/internal/sse"
  "github.com/aokimori/libretutor-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  bookRepo := repos.NewBookRepo(thePG, log)
  chapterRepo := repos.NewChapterRepo(thePG, log)
  sectionRepo := repos.NewSectionRepo(thePG, log)
  sessionRepo := repos.NewChatSessionRepo(thePG, log)
  messageRepo := repos.NewChatMessageRepo(thePG, log)
  promptRepo := repos.NewSystemPromptRepo(thePG, log)
  questionRepo := repos.NewReviewQuestionRepo(thePG, log)
  historyRepo := repos.NewReviewHistoryRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  sseBus, err := services.NewRedisSSEBus(log)
  if err != nil {
    log.Error("Could not init Redis SSE bus", "error", err)
    os.Exit(1)
  }
  if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
    log.Error("Could not start SSE forwarder", "error", err)
    os.Exit(1)
  }

  // Clients
  log.Info("Setting up external clients from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Error("Could not init BucketService", "error", err)
    os.Exit(1)
  }
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Error("Could not init OpenAIClient", "error", err)
    os.Exit(1)
  }
  docExtractor, err := services.NewGeminiDocExtractor(log)
  if err != nil {
    log.Error("Could not init GeminiDocExtractor", "error", err)
    os.Exit(1)
  }
  pineconeClient, err := pinecone.New(log, pinecone.Config{
    APIKey: os.Getenv("PINECONE_API_KEY"),
  })
  if err != nil {
    log.Error("Could not init Pinecone client", "error", err)
    os.Exit(1)
  }
  vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
  if err != nil {
    log.Error("Could not init Pinecone vector store", "error", err)
    os.Exit(1)
  }

  // Services
  log.Info("Setting up Services from main...")
  promptService := services.NewPromptService(thePG, log, promptRepo)
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, promptService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(thePG, log, userRepo)
  bookService := services.NewBookService(thePG, log, bookRepo, chapterRepo, sectionRepo, sessionRepo, messageRepo, questionRepo, historyRepo, bucketService)
  ingestionService := services.NewIngestionService(thePG, log, bookRepo, chapterRepo, sectionRepo, bucketService, docExtractor, openaiClient, vectorStore, sseBus)
  chatService := services.NewChatService(thePG, log, bookRepo, sectionRepo, sessionRepo, messageRepo, promptRepo, questionRepo, historyRepo, openaiClient, vectorStore, sseBus)
  reviewService := services.NewReviewService(thePG, log, questionRepo, historyRepo)
  importService := services.NewImportService(thePG, log, bookRepo, sessionRepo, questionRepo, historyRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userService)
  bookHandler := handlers.NewBookHandler(bookService, ingestionService)
  chatHandler := handlers.NewChatHandler(chatService)
  promptHandler := handlers.NewPromptHandler(promptService)
  reviewHandler := handlers.NewReviewHandler(reviewService)
  importHandler := handlers.NewImportHandler(importService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    UserHandler:    userHandler,
    BookHandler:    bookHandler,
    ChatHandler:    chatHandler,
    PromptHandler:  promptHandler,
    ReviewHandler:  reviewHandler,
    ImportHandler:  importHandler,
    SSEHandler:     sseHandler,
    AllowOrigins:   allowOrigins,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
