package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type ChatSession struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User          *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  BookID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"book_id"`
  Book          *Book           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BookID;references:ID" json:"book,omitempty"`
  ChapterID     *uuid.UUID      `gorm:"type:uuid;index" json:"chapter_id,omitempty"`
  Chapter       *Chapter        `gorm:"constraint:OnDelete:SET NULL;foreignKey:ChapterID;references:ID" json:"chapter,omitempty"`
  LLMProvider   string          `gorm:"column:llm_provider;not null" json:"llm_provider"`
  Status        string          `gorm:"column:status;not null;default:'active';index" json:"status"` // active|completed
  CurrentTopic  string          `gorm:"column:current_topic" json:"current_topic"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatSession) TableName() string {
  return "chat_session"
}

type ChatMessage struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  SessionID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"session_id"`
  Session       *ChatSession    `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
  Role          string          `gorm:"column:role;not null" json:"role"` // user|assistant
  Content       string          `gorm:"column:content;not null" json:"content"`
  SectionsUsed  datatypes.JSON  `gorm:"column:sections_used;type:jsonb" json:"sections_used"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (ChatMessage) TableName() string {
  return "chat_message"
}
