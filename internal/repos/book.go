package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type BookRepo interface {
  Create(ctx context.Context, tx *gorm.DB, books []*types.Book) ([]*types.Book, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.Book, error)
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Book, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, bookID, userID uuid.UUID) (*types.Book, error)
  GetByTitleForUser(ctx context.Context, tx *gorm.DB, title string, userID uuid.UUID) (*types.Book, error)
  UpdateProcessingProgress(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, processedChapters int, status string) error
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error
}

type bookRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
  repoLog := baseLog.With("repo", "BookRepo")
  return &bookRepo{db: db, log: repoLog}
}

func (br *bookRepo) Create(ctx context.Context, tx *gorm.DB, books []*types.Book) ([]*types.Book, error) {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  if len(books) == 0 {
    return []*types.Book{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&books).Error; err != nil {
    return nil, err
  }
  return books, nil
}

func (br *bookRepo) GetByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.Book, error) {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  var results []*types.Book
  if len(bookIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", bookIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (br *bookRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Book, error) {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  var results []*types.Book
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

func (br *bookRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, bookID, userID uuid.UUID) (*types.Book, error) {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  var result types.Book
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", bookID, userID).
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (br *bookRepo) GetByTitleForUser(ctx context.Context, tx *gorm.DB, title string, userID uuid.UUID) (*types.Book, error) {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  var result types.Book
  err := transaction.WithContext(ctx).
    Where("title = ? AND user_id = ?", title, userID).
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (br *bookRepo) UpdateProcessingProgress(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, processedChapters int, status string) error {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  if err := transaction.WithContext(ctx).
    Model(&types.Book{}).
    Where("id = ?", bookID).
    Updates(map[string]interface{}{
      "processed_chapters": processedChapters,
      "processing_status":  status,
    }).Error; err != nil {
    return err
  }
  return nil
}

func (br *bookRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  if len(bookIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", bookIDs).
    Delete(&types.Book{}).Error; err != nil {
    return err
  }
  return nil
}

func (br *bookRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = br.db
  }

  if len(bookIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", bookIDs).
    Delete(&types.Book{}).Error; err != nil {
    return err
  }
  return nil
}
