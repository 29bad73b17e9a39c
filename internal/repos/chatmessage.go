package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type ChatMessageRepo interface {
  Create(ctx context.Context, tx *gorm.DB, messages []*types.ChatMessage) ([]*types.ChatMessage, error)
  GetBySessionIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.ChatMessage, error)
  FullDeleteBySessionIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) error
}

type chatMessageRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
  repoLog := baseLog.With("repo", "ChatMessageRepo")
  return &chatMessageRepo{db: db, log: repoLog}
}

func (cmr *chatMessageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.ChatMessage) ([]*types.ChatMessage, error) {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  if len(messages) == 0 {
    return []*types.ChatMessage{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
    return nil, err
  }
  return messages, nil
}

func (cmr *chatMessageRepo) GetBySessionIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.ChatMessage, error) {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  var results []*types.ChatMessage
  if len(sessionIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("session_id IN ?", sessionIDs).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cmr *chatMessageRepo) FullDeleteBySessionIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  if len(sessionIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("session_id IN ?", sessionIDs).
    Delete(&types.ChatMessage{}).Error; err != nil {
    return err
  }
  return nil
}
