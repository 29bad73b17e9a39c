package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type SectionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, sections []*types.Section) ([]*types.Section, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, sectionIDs []uuid.UUID) ([]*types.Section, error)
  GetByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Section, error)
  FullDeleteByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) error
}

type sectionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
  repoLog := baseLog.With("repo", "SectionRepo")
  return &sectionRepo{db: db, log: repoLog}
}

func (sr *sectionRepo) Create(ctx context.Context, tx *gorm.DB, sections []*types.Section) ([]*types.Section, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  if len(sections) == 0 {
    return []*types.Section{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&sections).Error; err != nil {
    return nil, err
  }
  return sections, nil
}

func (sr *sectionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, sectionIDs []uuid.UUID) ([]*types.Section, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Section
  if len(sectionIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", sectionIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *sectionRepo) GetByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Section, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Section
  if len(chapterIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("chapter_id IN ?", chapterIDs).
    Order("chapter_id, section_number ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *sectionRepo) FullDeleteByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  if len(chapterIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("chapter_id IN ?", chapterIDs).
    Delete(&types.Section{}).Error; err != nil {
    return err
  }
  return nil
}
