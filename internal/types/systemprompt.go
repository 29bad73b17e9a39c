package types

import (
  "time"
  "github.com/google/uuid"
)

type SystemPrompt struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User          *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Name          string          `gorm:"column:name;not null" json:"name"`
  Content       string          `gorm:"column:content;not null" json:"content"`
  IsDefault     bool            `gorm:"column:is_default;not null;default:false;index" json:"is_default"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (SystemPrompt) TableName() string {
  return "system_prompt"
}
