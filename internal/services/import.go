package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/srs"
  "github.com/aokimori/libretutor-backend/internal/types"
)

// ImportSession is a learning session exported from an external tool. The
// book is matched by title and created as a stub when missing, so imports
// work without a PDF ever being uploaded.
type ImportSession struct {
  Date            string            `json:"date"`
  Project         string            `json:"project"`
  Title           string            `json:"title,omitempty"`
  Author          string            `json:"author,omitempty"`
  Chapter         int               `json:"chapter,omitempty"`
  ChapterTitle    string            `json:"chapter_title,omitempty"`
  Topic           string            `json:"topic,omitempty"`
  ReviewQuestions []ImportQuestion  `json:"review_questions,omitempty"`
}

type ImportQuestion struct {
  Question         string    `json:"question"`
  Answer           string    `json:"answer"`
  Explanation      string    `json:"explanation,omitempty"`
  WhyImportant     string    `json:"why_important,omitempty"`
  DifficultyLevel  int       `json:"difficulty_level,omitempty"`
  RelatedConcepts  []string  `json:"related_concepts,omitempty"`
}

// ImportResult reports what an import created.
type ImportResult struct {
  BookID          uuid.UUID  `json:"book_id"`
  SessionID       uuid.UUID  `json:"session_id"`
  QuestionsCount  int        `json:"questions_count"`
}

type ImportService interface {
  ImportSession(ctx context.Context, data *ImportSession) (*ImportResult, error)
}

type importService struct {
  db            *gorm.DB
  log           *logger.Logger
  bookRepo      repos.BookRepo
  sessionRepo   repos.ChatSessionRepo
  questionRepo  repos.ReviewQuestionRepo
  historyRepo   repos.ReviewHistoryRepo
  now           func() time.Time
}

func NewImportService(
  db *gorm.DB,
  log *logger.Logger,
  bookRepo repos.BookRepo,
  sessionRepo repos.ChatSessionRepo,
  questionRepo repos.ReviewQuestionRepo,
  historyRepo repos.ReviewHistoryRepo,
) ImportService {
  serviceLog := log.With("service", "ImportService")
  return &importService{
    db:           db,
    log:          serviceLog,
    bookRepo:     bookRepo,
    sessionRepo:  sessionRepo,
    questionRepo: questionRepo,
    historyRepo:  historyRepo,
    now:          time.Now,
  }
}

// importedSelfRating seeds the history of an imported question. The session
// already happened, so the midpoint rating stands in for the unknown grade.
const importedSelfRating = 3

func (is *importService) ImportSession(ctx context.Context, data *ImportSession) (*ImportResult, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  if data == nil || strings.TrimSpace(data.Project) == "" || strings.TrimSpace(data.Date) == "" {
    return nil, fmt.Errorf("Invalid input: project and date are required")
  }

  now := is.now()
  result := &ImportResult{}
  if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    book, bErr := is.bookRepo.GetByTitleForUser(ctx, tx, data.Project, rd.UserID)
    if bErr != nil {
      return fmt.Errorf("Failed to fetch book: %w", bErr)
    }
    if book == nil {
      title := data.Title
      if title == "" {
        title = data.Project
      }
      book = &types.Book{
        ID:               uuid.New(),
        UserID:           rd.UserID,
        Title:            title,
        Author:           data.Author,
        PDFStorageKey:    "",
        ProcessingStatus: "completed",
      }
      if _, cErr := is.bookRepo.Create(ctx, tx, []*types.Book{book}); cErr != nil {
        return fmt.Errorf("Failed to create book: %w", cErr)
      }
    }
    result.BookID = book.ID

    topic := data.Topic
    if topic == "" {
      topic = data.ChapterTitle
    }
    session := &types.ChatSession{
      ID:           uuid.New(),
      UserID:       rd.UserID,
      BookID:       book.ID,
      LLMProvider:  "imported",
      Status:       "completed",
      CurrentTopic: topic,
    }
    if _, sErr := is.sessionRepo.Create(ctx, tx, []*types.ChatSession{session}); sErr != nil {
      return fmt.Errorf("Failed to create session: %w", sErr)
    }
    result.SessionID = session.ID

    if len(data.ReviewQuestions) == 0 {
      return nil
    }

    questions := make([]*types.ReviewQuestion, 0, len(data.ReviewQuestions))
    for _, iq := range data.ReviewQuestions {
      difficulty := iq.DifficultyLevel
      if difficulty == 0 {
        difficulty = 3
      }
      concepts, mErr := json.Marshal(iq.RelatedConcepts)
      if mErr != nil {
        return fmt.Errorf("Failed to marshal related concepts: %w", mErr)
      }
      questions = append(questions, &types.ReviewQuestion{
        ID:              uuid.New(),
        UserID:          rd.UserID,
        BookID:          book.ID,
        ChatSessionID:   &session.ID,
        Question:        iq.Question,
        Answer:          iq.Answer,
        Explanation:     iq.Explanation,
        WhyImportant:    iq.WhyImportant,
        DifficultyLevel: difficulty,
        RelatedConcepts: datatypes.JSON(concepts),
      })
    }
    if _, qErr := is.questionRepo.Create(ctx, tx, questions); qErr != nil {
      return fmt.Errorf("Failed to create questions: %w", qErr)
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
    if _, hErr := is.historyRepo.Append(ctx, tx, histories); hErr != nil {
      return fmt.Errorf("Failed to create review history: %w", hErr)
    }
    result.QuestionsCount = len(questions)
    return nil
  }); err != nil {
    return nil, err
  }
  return result, nil
}
