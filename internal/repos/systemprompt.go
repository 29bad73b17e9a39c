package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type SystemPromptRepo interface {
  Create(ctx context.Context, tx *gorm.DB, prompts []*types.SystemPrompt) ([]*types.SystemPrompt, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, promptID, userID uuid.UUID) (*types.SystemPrompt, error)
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.SystemPrompt, error)
  GetDefaultForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SystemPrompt, error)
  Update(ctx context.Context, tx *gorm.DB, prompt *types.SystemPrompt) error
  ClearDefaultForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, promptIDs []uuid.UUID) error
}

type systemPromptRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSystemPromptRepo(db *gorm.DB, baseLog *logger.Logger) SystemPromptRepo {
  repoLog := baseLog.With("repo", "SystemPromptRepo")
  return &systemPromptRepo{db: db, log: repoLog}
}

func (spr *systemPromptRepo) Create(ctx context.Context, tx *gorm.DB, prompts []*types.SystemPrompt) ([]*types.SystemPrompt, error) {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  if len(prompts) == 0 {
    return []*types.SystemPrompt{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&prompts).Error; err != nil {
    return nil, err
  }
  return prompts, nil
}

func (spr *systemPromptRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, promptID, userID uuid.UUID) (*types.SystemPrompt, error) {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  var result types.SystemPrompt
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", promptID, userID).
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (spr *systemPromptRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.SystemPrompt, error) {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  var results []*types.SystemPrompt
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

func (spr *systemPromptRepo) GetDefaultForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SystemPrompt, error) {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  var result types.SystemPrompt
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND is_default = ?", userID, true).
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (spr *systemPromptRepo) Update(ctx context.Context, tx *gorm.DB, prompt *types.SystemPrompt) error {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  if err := transaction.WithContext(ctx).
    Model(&types.SystemPrompt{}).
    Where("id = ?", prompt.ID).
    Updates(map[string]interface{}{
      "name":       prompt.Name,
      "content":    prompt.Content,
      "is_default": prompt.IsDefault,
    }).Error; err != nil {
    return err
  }
  return nil
}

func (spr *systemPromptRepo) ClearDefaultForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  if err := transaction.WithContext(ctx).
    Model(&types.SystemPrompt{}).
    Where("user_id = ? AND is_default = ?", userID, true).
    Update("is_default", false).Error; err != nil {
    return err
  }
  return nil
}

func (spr *systemPromptRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, promptIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = spr.db
  }

  if len(promptIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", promptIDs).
    Delete(&types.SystemPrompt{}).Error; err != nil {
    return err
  }
  return nil
}
