package services

import (
  "context"
  "errors"
  "fmt"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/srs"
  "github.com/aokimori/libretutor-backend/internal/types"
)

var ErrInvalidRating = srs.ErrInvalidRating

// DueQuestion pairs a review question with its most recent history row.
type DueQuestion struct {
  Question   *types.ReviewQuestion  `json:"question"`
  LastReview *types.ReviewHistory   `json:"last_review"`
}

type ReviewService interface {
  RecordReview(ctx context.Context, questionID uuid.UUID, rating int, reviewedAt *time.Time) (*types.ReviewHistory, error)
  DueToday(ctx context.Context) ([]*DueQuestion, error)
}

type reviewService struct {
  db            *gorm.DB
  log           *logger.Logger
  questionRepo  repos.ReviewQuestionRepo
  historyRepo   repos.ReviewHistoryRepo
  now           func() time.Time
}

func NewReviewService(db *gorm.DB, log *logger.Logger, questionRepo repos.ReviewQuestionRepo, historyRepo repos.ReviewHistoryRepo) ReviewService {
  serviceLog := log.With("service", "ReviewService")
  return &reviewService{
    db:           db,
    log:          serviceLog,
    questionRepo: questionRepo,
    historyRepo:  historyRepo,
    now:          time.Now,
  }
}

// RecordReview grades a question and appends the resulting scheduling state
// as a new history row. History is never updated in place: the latest row is
// the current state, older rows are the audit trail.
func (rs *reviewService) RecordReview(ctx context.Context, questionID uuid.UUID, rating int, reviewedAt *time.Time) (*types.ReviewHistory, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  when := rs.now()
  if reviewedAt != nil {
    when = *reviewedAt
  }

  var out *types.ReviewHistory
  if err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    question, qErr := rs.questionRepo.GetByIDForUser(ctx, tx, questionID, rd.UserID)
    if qErr != nil {
      return fmt.Errorf("Failed to fetch question: %w", qErr)
    }
    if question == nil {
      return fmt.Errorf("Question not found")
    }

    latest, lErr := rs.historyRepo.GetLatestByQuestionIDs(ctx, tx, []uuid.UUID{questionID})
    if lErr != nil {
      return fmt.Errorf("Failed to fetch latest review history: %w", lErr)
    }

    current := srs.State{
      IntervalDays: srs.InitialIntervalDays,
      EaseFactor:   srs.InitialEaseFactor,
      Repetitions:  0,
    }
    if row, ok := latest[questionID]; ok {
      current = srs.State{
        IntervalDays: row.IntervalDays,
        EaseFactor:   row.EaseFactor,
        Repetitions:  row.Repetitions,
      }
    }

    next, cErr := srs.ComputeNextReview(rating, current, when)
    if cErr != nil {
      if errors.Is(cErr, srs.ErrInvalidRating) {
        return cErr
      }
      return fmt.Errorf("Failed to compute next review: %w", cErr)
    }

    row := &types.ReviewHistory{
      ID:             uuid.New(),
      UserID:         rd.UserID,
      QuestionID:     questionID,
      ReviewedAt:     when,
      SelfRating:     rating,
      NextReviewDate: next.NextReviewDate,
      IntervalDays:   next.IntervalDays,
      EaseFactor:     next.EaseFactor,
      Repetitions:    next.Repetitions,
    }
    if _, aErr := rs.historyRepo.Append(ctx, tx, []*types.ReviewHistory{row}); aErr != nil {
      return fmt.Errorf("Failed to record review: %w", aErr)
    }
    out = row
    return nil
  }); err != nil {
    return nil, err
  }
  return out, nil
}

// DueToday returns every question whose latest history row has a next review
// date on or before today, joined with that row.
func (rs *reviewService) DueToday(ctx context.Context) ([]*DueQuestion, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  dueRows, err := rs.historyRepo.GetDueLatest(ctx, nil, rd.UserID, rs.now())
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch due review history: %w", err)
  }
  if len(dueRows) == 0 {
    return []*DueQuestion{}, nil
  }

  byQuestion := make(map[uuid.UUID]*types.ReviewHistory, len(dueRows))
  questionIDs := make([]uuid.UUID, 0, len(dueRows))
  for _, row := range dueRows {
    byQuestion[row.QuestionID] = row
    questionIDs = append(questionIDs, row.QuestionID)
  }

  questions, qErr := rs.questionRepo.GetByIDs(ctx, nil, questionIDs)
  if qErr != nil {
    return nil, fmt.Errorf("Failed to fetch due questions: %w", qErr)
  }

  due := make([]*DueQuestion, 0, len(questions))
  for _, question := range questions {
    due = append(due, &DueQuestion{
      Question:   question,
      LastReview: byQuestion[question.ID],
    })
  }
  return due, nil
}
