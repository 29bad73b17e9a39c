package services

import (
  "context"
  "encoding/json"
  "fmt"
  "regexp"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/clients/pinecone"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/sse"
  "github.com/aokimori/libretutor-backend/internal/srs"
  "github.com/aokimori/libretutor-backend/internal/types"
)

const (
  // Semantic search across a whole book: top 5 sections, cosine score 0.3
  // minimum so unrelated books return an empty context instead of noise.
  semanticSearchTopK      = 5
  semanticSearchThreshold = 0.3

  currentTopicMaxLen = 100

  minMessagesForReview = 2
)

const reviewGenerationPrompt = `You are an excellent educator. Analyze the chat transcript below and
generate review questions that check the learner's understanding.

Requirements per question:
- question: the question text
- answer: the correct answer, concise
- explanation: a detailed explanation
- why_important: why this content matters
- difficulty_level: 1-5, 1 is easiest
- related_concepts: list of related concepts

Output 3 to 5 questions as JSON in exactly this shape:
{
  "questions": [
    {
      "question": "...",
      "answer": "...",
      "explanation": "...",
      "why_important": "...",
      "difficulty_level": 3,
      "related_concepts": ["concept 1", "concept 2"]
    }
  ]
}

Transcript:
`

// ChatSendInput is a chat turn. SessionID empty starts a new session;
// ChapterID nil grounds the reply on semantic search across the whole book
// instead of one chapter's sections.
type ChatSendInput struct {
  BookID    uuid.UUID
  ChapterID *uuid.UUID
  SessionID *uuid.UUID
  Provider  string
  Message   string
}

// EndSessionResult reports the questions distilled from a finished session.
type EndSessionResult struct {
  QuestionsCount int                     `json:"questions_count"`
  Questions      []*types.ReviewQuestion `json:"questions"`
}

type generatedQuestion struct {
  Question        string   `json:"question"`
  Answer          string   `json:"answer"`
  Explanation     string   `json:"explanation"`
  WhyImportant    string   `json:"why_important"`
  DifficultyLevel int      `json:"difficulty_level"`
  RelatedConcepts []string `json:"related_concepts"`
}

type generatedQuestions struct {
  Questions []generatedQuestion `json:"questions"`
}

type ChatService interface {
  // Send streams the tutor reply: onSessionID fires once before the first
  // chunk, then onChunk per text delta. Both messages are persisted.
  Send(ctx context.Context, input ChatSendInput, onSessionID func(sessionID uuid.UUID) error, onChunk func(chunk string) error) error
  ClearHistory(ctx context.Context, sessionID uuid.UUID) error
  EndSession(ctx context.Context, sessionID uuid.UUID) (*EndSessionResult, error)
}

type chatService struct {
  db            *gorm.DB
  log           *logger.Logger
  bookRepo      repos.BookRepo
  sectionRepo   repos.SectionRepo
  sessionRepo   repos.ChatSessionRepo
  messageRepo   repos.ChatMessageRepo
  promptRepo    repos.SystemPromptRepo
  questionRepo  repos.ReviewQuestionRepo
  historyRepo   repos.ReviewHistoryRepo
  openAIClient  OpenAIClient
  vectorStore   pinecone.VectorStore
  sseBus        SSEBus
  llmFactory    func(provider string) (LLMClient, error)
  now           func() time.Time
}

func NewChatService(
  db *gorm.DB,
  log *logger.Logger,
  bookRepo repos.BookRepo,
  sectionRepo repos.SectionRepo,
  sessionRepo repos.ChatSessionRepo,
  messageRepo repos.ChatMessageRepo,
  promptRepo repos.SystemPromptRepo,
  questionRepo repos.ReviewQuestionRepo,
  historyRepo repos.ReviewHistoryRepo,
  openAIClient OpenAIClient,
  vectorStore pinecone.VectorStore,
  sseBus SSEBus,
) ChatService {
  serviceLog := log.With("service", "ChatService")
  return &chatService{
    db:           db,
    log:          serviceLog,
    bookRepo:     bookRepo,
    sectionRepo:  sectionRepo,
    sessionRepo:  sessionRepo,
    messageRepo:  messageRepo,
    promptRepo:   promptRepo,
    questionRepo: questionRepo,
    historyRepo:  historyRepo,
    openAIClient: openAIClient,
    vectorStore:  vectorStore,
    sseBus:       sseBus,
    llmFactory: func(provider string) (LLMClient, error) {
      return NewLLMClient(serviceLog, provider)
    },
    now: time.Now,
  }
}

func (cs *chatService) Send(ctx context.Context, input ChatSendInput, onSessionID func(uuid.UUID) error, onChunk func(string) error) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return fmt.Errorf("Unauthorized")
  }
  if input.BookID == uuid.Nil || strings.TrimSpace(input.Message) == "" {
    return fmt.Errorf("Missing required fields")
  }

  book, bErr := cs.bookRepo.GetByIDForUser(ctx, nil, input.BookID, rd.UserID)
  if bErr != nil {
    return fmt.Errorf("Failed to fetch book: %w", bErr)
  }
  if book == nil {
    return fmt.Errorf("Book not found")
  }

  session, sErr := cs.getOrCreateSession(ctx, rd.UserID, input)
  if sErr != nil {
    return sErr
  }

  history, hErr := cs.messageRepo.GetBySessionIDs(ctx, nil, []uuid.UUID{session.ID})
  if hErr != nil {
    cs.log.Warn("Failed to load session history", "error", hErr)
    history = nil
  }

  userMessage := &types.ChatMessage{
    ID:        uuid.New(),
    SessionID: session.ID,
    Role:      "user",
    Content:   input.Message,
  }
  if _, mErr := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{userMessage}); mErr != nil {
    cs.log.Warn("Failed to save user message", "error", mErr)
  }

  contextText, sectionsUsed, cErr := cs.buildContext(ctx, input)
  if cErr != nil {
    cs.log.Warn("Context build failed, continuing without context", "error", cErr)
  }

  promptContent, pErr := cs.resolvePromptContent(ctx, rd.UserID, contextText)
  if pErr != nil {
    return pErr
  }

  llm, lErr := cs.llmFactory(session.LLMProvider)
  if lErr != nil {
    return fmt.Errorf("Failed to create LLM client: %w", lErr)
  }

  if sidErr := onSessionID(session.ID); sidErr != nil {
    return sidErr
  }

  messages := make([]LLMMessage, 0, len(history)+2)
  messages = append(messages, LLMMessage{Role: "system", Content: promptContent})
  for _, msg := range history {
    if msg.Role != "user" && msg.Role != "assistant" {
      continue
    }
    messages = append(messages, LLMMessage{Role: msg.Role, Content: msg.Content})
  }
  messages = append(messages, LLMMessage{Role: "user", Content: input.Message})
  fullResponse, gErr := llm.GenerateStream(ctx, messages, onChunk)
  if gErr != nil {
    return fmt.Errorf("LLM stream error: %w", gErr)
  }

  var sectionsJSON datatypes.JSON
  if len(sectionsUsed) > 0 {
    raw, mErr := json.Marshal(sectionsUsed)
    if mErr == nil {
      sectionsJSON = datatypes.JSON(raw)
    }
  }
  assistantMessage := &types.ChatMessage{
    ID:           uuid.New(),
    SessionID:    session.ID,
    Role:         "assistant",
    Content:      fullResponse,
    SectionsUsed: sectionsJSON,
  }
  if _, aErr := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{assistantMessage}); aErr != nil {
    cs.log.Warn("Failed to save assistant message", "error", aErr)
  }

  topic := input.Message
  if len(topic) > currentTopicMaxLen {
    topic = topic[:currentTopicMaxLen]
  }
  if tErr := cs.sessionRepo.UpdateCurrentTopic(ctx, nil, session.ID, topic); tErr != nil {
    cs.log.Warn("Failed to update current topic", "error", tErr)
  }
  return nil
}

func (cs *chatService) getOrCreateSession(ctx context.Context, userID uuid.UUID, input ChatSendInput) (*types.ChatSession, error) {
  if input.SessionID != nil && *input.SessionID != uuid.Nil {
    sessions, err := cs.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{*input.SessionID})
    if err != nil {
      return nil, fmt.Errorf("Failed to fetch session: %w", err)
    }
    if len(sessions) == 0 || sessions[0].UserID != userID {
      return nil, fmt.Errorf("Session not found")
    }
    return sessions[0], nil
  }

  provider := input.Provider
  if provider == "" {
    provider = DefaultLLMProvider
  }
  session := &types.ChatSession{
    ID:          uuid.New(),
    UserID:      userID,
    BookID:      input.BookID,
    ChapterID:   input.ChapterID,
    LLMProvider: provider,
    Status:      "active",
  }
  if _, err := cs.sessionRepo.Create(ctx, nil, []*types.ChatSession{session}); err != nil {
    return nil, fmt.Errorf("Failed to create chat session: %w", err)
  }
  return session, nil
}

// buildContext gathers the grounding text: all sections of the chosen
// chapter in order, or the best-scoring sections across the book via
// embedding search when no chapter is selected.
func (cs *chatService) buildContext(ctx context.Context, input ChatSendInput) (string, []uuid.UUID, error) {
  if input.ChapterID != nil && *input.ChapterID != uuid.Nil {
    sections, err := cs.sectionRepo.GetByChapterIDs(ctx, nil, []uuid.UUID{*input.ChapterID})
    if err != nil {
      return "", nil, fmt.Errorf("Failed to fetch chapter sections: %w", err)
    }
    var parts []string
    var used []uuid.UUID
    for _, section := range sections {
      used = append(used, section.ID)
      parts = append(parts, fmt.Sprintf("## %s. %s\n\n%s", section.SectionNumber, section.Title, section.Content))
    }
    return strings.Join(parts, "\n\n---\n\n"), used, nil
  }

  embeddings, err := cs.openAIClient.Embed(ctx, []string{input.Message})
  if err != nil {
    return "", nil, fmt.Errorf("Failed to embed query: %w", err)
  }
  matches, err := cs.vectorStore.QueryMatches(ctx, input.BookID.String(), embeddings[0], semanticSearchTopK, nil)
  if err != nil {
    return "", nil, fmt.Errorf("Semantic search failed: %w", err)
  }

  var sectionIDs []uuid.UUID
  for _, match := range matches {
    if match.Score < semanticSearchThreshold {
      continue
    }
    id, pErr := uuid.Parse(match.ID)
    if pErr != nil {
      continue
    }
    sectionIDs = append(sectionIDs, id)
  }
  if len(sectionIDs) == 0 {
    return "", nil, nil
  }

  sections, err := cs.sectionRepo.GetByIDs(ctx, nil, sectionIDs)
  if err != nil {
    return "", nil, fmt.Errorf("Failed to fetch matched sections: %w", err)
  }
  byID := make(map[uuid.UUID]*types.Section, len(sections))
  for _, section := range sections {
    byID[section.ID] = section
  }

  // keep score order
  var parts []string
  var used []uuid.UUID
  for _, id := range sectionIDs {
    section, ok := byID[id]
    if !ok {
      continue
    }
    used = append(used, section.ID)
    parts = append(parts, fmt.Sprintf("## %s\n\n%s", section.Title, section.Content))
  }
  return strings.Join(parts, "\n\n---\n\n"), used, nil
}

func (cs *chatService) resolvePromptContent(ctx context.Context, userID uuid.UUID, contextText string) (string, error) {
  if contextText == "" {
    contextText = EmptyContextNotice
  }
  defaultPrompt, err := cs.promptRepo.GetDefaultForUser(ctx, nil, userID)
  if err != nil {
    return "", fmt.Errorf("Failed to fetch default prompt: %w", err)
  }
  if defaultPrompt != nil && defaultPrompt.Content != "" {
    return strings.Replace(defaultPrompt.Content, "{context}", contextText, 1), nil
  }
  return strings.Replace(FallbackPromptContent, "{context}", contextText, 1), nil
}

// ClearHistory deletes a session and its messages so the book page starts a
// fresh session on the next turn.
func (cs *chatService) ClearHistory(ctx context.Context, sessionID uuid.UUID) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return fmt.Errorf("Unauthorized")
  }
  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    sessions, sErr := cs.sessionRepo.GetByIDs(ctx, tx, []uuid.UUID{sessionID})
    if sErr != nil {
      return fmt.Errorf("Failed to fetch session: %w", sErr)
    }
    if len(sessions) == 0 || sessions[0].UserID != rd.UserID {
      return fmt.Errorf("Session not found")
    }
    if mErr := cs.messageRepo.FullDeleteBySessionIDs(ctx, tx, []uuid.UUID{sessionID}); mErr != nil {
      return fmt.Errorf("Failed to clear history: %w", mErr)
    }
    if dErr := cs.sessionRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{sessionID}); dErr != nil {
      return fmt.Errorf("Failed to delete session: %w", dErr)
    }
    return nil
  })
}

// EndSession distills a finished conversation into review questions and
// seeds each one with the initial scheduling state, then marks the session
// completed.
func (cs *chatService) EndSession(ctx context.Context, sessionID uuid.UUID) (*EndSessionResult, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  sessions, sErr := cs.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
  if sErr != nil {
    return nil, fmt.Errorf("Failed to fetch session: %w", sErr)
  }
  if len(sessions) == 0 || sessions[0].UserID != rd.UserID {
    return nil, fmt.Errorf("Session not found")
  }
  session := sessions[0]

  messages, mErr := cs.messageRepo.GetBySessionIDs(ctx, nil, []uuid.UUID{sessionID})
  if mErr != nil {
    return nil, fmt.Errorf("Failed to fetch messages: %w", mErr)
  }
  if len(messages) < minMessagesForReview {
    return nil, fmt.Errorf("Not enough conversation to generate review questions")
  }

  var transcript strings.Builder
  for i, msg := range messages {
    if i > 0 {
      transcript.WriteString("\n\n---\n\n")
    }
    role := "Tutor"
    if msg.Role == "user" {
      role = "Learner"
    }
    transcript.WriteString("[" + role + "]\n" + msg.Content)
  }

  llm, lErr := cs.llmFactory(session.LLMProvider)
  if lErr != nil {
    return nil, fmt.Errorf("Failed to create LLM client: %w", lErr)
  }
  response, gErr := llm.GenerateText(ctx, []LLMMessage{
    {Role: "system", Content: reviewGenerationPrompt + transcript.String()},
    {Role: "user", Content: "Generate review questions from the transcript above."},
  })
  if gErr != nil {
    return nil, fmt.Errorf("Failed to generate review questions: %w", gErr)
  }

  generated, pErr := parseGeneratedQuestions(response)
  if pErr != nil {
    cs.log.Warn("Failed to parse generated questions", "error", pErr, "raw", response)
    return nil, fmt.Errorf("Failed to parse generated questions")
  }
  if len(generated) == 0 {
    return nil, fmt.Errorf("No questions generated")
  }

  now := cs.now()
  var questions []*types.ReviewQuestion
  if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    questions = make([]*types.ReviewQuestion, 0, len(generated))
    for _, gq := range generated {
      difficulty := gq.DifficultyLevel
      if difficulty == 0 {
        difficulty = 3
      }
      concepts, mErr := json.Marshal(gq.RelatedConcepts)
      if mErr != nil {
        return fmt.Errorf("Failed to marshal related concepts: %w", mErr)
      }
      questions = append(questions, &types.ReviewQuestion{
        ID:              uuid.New(),
        UserID:          rd.UserID,
        BookID:          session.BookID,
        ChatSessionID:   &session.ID,
        Question:        gq.Question,
        Answer:          gq.Answer,
        Explanation:     gq.Explanation,
        WhyImportant:    gq.WhyImportant,
        DifficultyLevel: difficulty,
        RelatedConcepts: datatypes.JSON(concepts),
      })
    }
    if _, qErr := cs.questionRepo.Create(ctx, tx, questions); qErr != nil {
      return fmt.Errorf("Failed to save review questions: %w", qErr)
    }

    initial := srs.InitialReviewState(now)
    histories := make([]*types.ReviewHistory, 0, len(questions))
    for _, question := range questions {
      histories = append(histories, &types.ReviewHistory{
        ID:             uuid.New(),
        UserID:         rd.UserID,
        QuestionID:     question.ID,
        ReviewedAt:     now,
        SelfRating:     importedSelfRating,
        NextReviewDate: initial.NextReviewDate,
        IntervalDays:   initial.IntervalDays,
        EaseFactor:     initial.EaseFactor,
        Repetitions:    initial.Repetitions,
      })
    }
    if _, hErr := cs.historyRepo.Append(ctx, tx, histories); hErr != nil {
      return fmt.Errorf("Failed to create review history: %w", hErr)
    }

    if uErr := cs.sessionRepo.UpdateStatus(ctx, tx, sessionID, "completed"); uErr != nil {
      return fmt.Errorf("Failed to close session: %w", uErr)
    }
    return nil
  }); err != nil {
    return nil, err
  }

  if cs.sseBus != nil {
    if pubErr := cs.sseBus.Publish(ctx, sse.SSEMessage{
      Channel: sse.UserChannel(rd.UserID),
      Event:   sse.SSEEventReviewQuestionsCreated,
      Data: map[string]any{
        "session_id":      sessionID,
        "questions_count": len(questions),
      },
    }); pubErr != nil {
      cs.log.Warn("Failed to publish review questions event", "error", pubErr)
    }
  }

  return &EndSessionResult{
    QuestionsCount: len(questions),
    Questions:      questions,
  }, nil
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseGeneratedQuestions pulls the questions JSON out of an LLM reply that
// may wrap it in a code fence or surround it with prose.
func parseGeneratedQuestions(response string) ([]generatedQuestion, error) {
  jsonStr := ""
  if m := jsonFenceRe.FindStringSubmatch(response); len(m) == 2 {
    jsonStr = m[1]
  } else {
    start := strings.Index(response, "{")
    end := strings.LastIndex(response, "}")
    if start >= 0 && end > start {
      jsonStr = response[start : end+1]
    }
  }
  if strings.TrimSpace(jsonStr) == "" {
    return nil, fmt.Errorf("no JSON found in response")
  }
  var parsed generatedQuestions
  if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
    return nil, err
  }
  return parsed.Questions, nil
}
