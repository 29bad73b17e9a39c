package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/srs"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type ReviewHistoryRepo interface {
  Append(ctx context.Context, tx *gorm.DB, rows []*types.ReviewHistory) ([]*types.ReviewHistory, error)
  GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.ReviewHistory, error)
  GetLatestByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) (map[uuid.UUID]*types.ReviewHistory, error)
  GetDueLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, today time.Time) ([]*types.ReviewHistory, error)
  FullDeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
}

type reviewHistoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReviewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ReviewHistoryRepo {
  repoLog := baseLog.With("repo", "ReviewHistoryRepo")
  return &reviewHistoryRepo{db: db, log: repoLog}
}

func (rhr *reviewHistoryRepo) Append(ctx context.Context, tx *gorm.DB, rows []*types.ReviewHistory) ([]*types.ReviewHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = rhr.db
  }

  if len(rows) == 0 {
    return []*types.ReviewHistory{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (rhr *reviewHistoryRepo) GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.ReviewHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = rhr.db
  }

  var results []*types.ReviewHistory
  if len(questionIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("question_id IN ?", questionIDs).
    Order("reviewed_at DESC, seq DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// GetLatestByQuestionIDs returns the most recent history row for each of the
// given questions. Recency is reviewed_at, with seq breaking ties. Questions
// with no history are absent from the map.
func (rhr *reviewHistoryRepo) GetLatestByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) (map[uuid.UUID]*types.ReviewHistory, error) {
  latest := make(map[uuid.UUID]*types.ReviewHistory)
  if len(questionIDs) == 0 {
    return latest, nil
  }

  rows, err := rhr.GetByQuestionIDs(ctx, tx, questionIDs)
  if err != nil {
    return nil, err
  }
  for _, row := range rows {
    if _, seen := latest[row.QuestionID]; !seen {
      latest[row.QuestionID] = row
    }
  }
  return latest, nil
}

// GetDueLatest returns, for every question the user has history on, the most
// recent row if and only if its next_review_date falls on or before today.
// Only the latest row per question counts: an item reviewed this morning with
// a future next_review_date is not due, no matter what its older rows say.
// The per-question reduce runs in the database (DISTINCT ON over the
// append-only table) so the query stays proportional to the user's question
// count, not their total review count. The due comparison stays in Go: it is
// date-only and srs.IsDue owns that normalization.
func (rhr *reviewHistoryRepo) GetDueLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, today time.Time) ([]*types.ReviewHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = rhr.db
  }

  var rows []*types.ReviewHistory
  if err := transaction.WithContext(ctx).
    Raw(`SELECT DISTINCT ON (question_id) *
         FROM review_history
         WHERE user_id = ?
         ORDER BY question_id, reviewed_at DESC, seq DESC`, userID).
    Scan(&rows).Error; err != nil {
    return nil, err
  }

  var due []*types.ReviewHistory
  for _, row := range rows {
    if srs.IsDue(row.NextReviewDate, today) {
      due = append(due, row)
    }
  }
  return due, nil
}

func (rhr *reviewHistoryRepo) FullDeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = rhr.db
  }

  if len(questionIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("question_id IN ?", questionIDs).
    Delete(&types.ReviewHistory{}).Error; err != nil {
    return err
  }
  return nil
}
