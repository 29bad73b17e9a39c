package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type ReviewQuestionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, questions []*types.ReviewQuestion) ([]*types.ReviewQuestion, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.ReviewQuestion, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, questionID, userID uuid.UUID) (*types.ReviewQuestion, error)
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.ReviewQuestion, error)
  GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.ReviewQuestion, error)
  FullDeleteByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error
}

type reviewQuestionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReviewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) ReviewQuestionRepo {
  repoLog := baseLog.With("repo", "ReviewQuestionRepo")
  return &reviewQuestionRepo{db: db, log: repoLog}
}

func (rqr *reviewQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.ReviewQuestion) ([]*types.ReviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  if len(questions) == 0 {
    return []*types.ReviewQuestion{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
    return nil, err
  }
  return questions, nil
}

func (rqr *reviewQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.ReviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  var results []*types.ReviewQuestion
  if len(questionIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", questionIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (rqr *reviewQuestionRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, questionID, userID uuid.UUID) (*types.ReviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  var result types.ReviewQuestion
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", questionID, userID).
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (rqr *reviewQuestionRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.ReviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  var results []*types.ReviewQuestion
  if len(userIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (rqr *reviewQuestionRepo) GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.ReviewQuestion, error) {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  var results []*types.ReviewQuestion
  if len(bookIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("book_id IN ?", bookIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (rqr *reviewQuestionRepo) FullDeleteByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = rqr.db
  }

  if len(bookIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("book_id IN ?", bookIDs).
    Delete(&types.ReviewQuestion{}).Error; err != nil {
    return err
  }
  return nil
}
