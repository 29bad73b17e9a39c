package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type ChapterRepo interface {
  Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Chapter, error)
  GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.Chapter, error)
  FullDeleteByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error
}

type chapterRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
  repoLog := baseLog.With("repo", "ChapterRepo")
  return &chapterRepo{db: db, log: repoLog}
}

func (cr *chapterRepo) Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(chapters) == 0 {
    return []*types.Chapter{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&chapters).Error; err != nil {
    return nil, err
  }
  return chapters, nil
}

func (cr *chapterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Chapter
  if len(chapterIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", chapterIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *chapterRepo) GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.Chapter, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Chapter
  if len(bookIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("book_id IN ?", bookIDs).
    Order("book_id, chapter_number ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *chapterRepo) FullDeleteByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(bookIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("book_id IN ?", bookIDs).
    Delete(&types.Chapter{}).Error; err != nil {
    return err
  }
  return nil
}
