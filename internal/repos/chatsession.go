package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/types"
)

type ChatSessionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, sessions []*types.ChatSession) ([]*types.ChatSession, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.ChatSession, error)
  GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.ChatSession, error)
  GetLatestActiveForBook(ctx context.Context, tx *gorm.DB, bookID, userID uuid.UUID) (*types.ChatSession, error)
  UpdateStatus(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, status string) error
  UpdateCurrentTopic(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, topic string) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) error
}

type chatSessionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
  repoLog := baseLog.With("repo", "ChatSessionRepo")
  return &chatSessionRepo{db: db, log: repoLog}
}

func (csr *chatSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.ChatSession) ([]*types.ChatSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  if len(sessions) == 0 {
    return []*types.ChatSession{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
    return nil, err
  }
  return sessions, nil
}

func (csr *chatSessionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.ChatSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  var results []*types.ChatSession
  if len(sessionIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", sessionIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (csr *chatSessionRepo) GetByBookIDs(ctx context.Context, tx *gorm.DB, bookIDs []uuid.UUID) ([]*types.ChatSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  var results []*types.ChatSession
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

func (csr *chatSessionRepo) GetLatestActiveForBook(ctx context.Context, tx *gorm.DB, bookID, userID uuid.UUID) (*types.ChatSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  var result types.ChatSession
  err := transaction.WithContext(ctx).
    Where("book_id = ? AND user_id = ? AND status = ?", bookID, userID, "active").
    Order("created_at DESC").
    First(&result).Error
  if err != nil {
    if err == gorm.ErrRecordNotFound {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (csr *chatSessionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, status string) error {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  if err := transaction.WithContext(ctx).
    Model(&types.ChatSession{}).
    Where("id = ?", sessionID).
    Update("status", status).Error; err != nil {
    return err
  }
  return nil
}

func (csr *chatSessionRepo) UpdateCurrentTopic(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, topic string) error {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  if err := transaction.WithContext(ctx).
    Model(&types.ChatSession{}).
    Where("id = ?", sessionID).
    Update("current_topic", topic).Error; err != nil {
    return err
  }
  return nil
}

func (csr *chatSessionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = csr.db
  }

  if len(sessionIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", sessionIDs).
    Delete(&types.ChatSession{}).Error; err != nil {
    return err
  }
  return nil
}
