package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type ReviewQuestion struct {
  ID               uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User             *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  BookID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"book_id"`
  Book             *Book           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BookID;references:ID" json:"book,omitempty"`
  ChatSessionID    *uuid.UUID      `gorm:"type:uuid;index" json:"chat_session_id,omitempty"`
  ChatSession      *ChatSession    `gorm:"constraint:OnDelete:SET NULL;foreignKey:ChatSessionID;references:ID" json:"chat_session,omitempty"`
  Question         string          `gorm:"column:question;not null" json:"question"`
  Answer           string          `gorm:"column:answer;not null" json:"answer"`
  Explanation      string          `gorm:"column:explanation" json:"explanation"`
  WhyImportant     string          `gorm:"column:why_important" json:"why_important"`
  DifficultyLevel  int             `gorm:"column:difficulty_level;not null;default:3" json:"difficulty_level"`
  RelatedConcepts  datatypes.JSON  `gorm:"column:related_concepts;type:jsonb" json:"related_concepts"`
  CreatedAt        time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt        time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReviewQuestion) TableName() string {
  return "review_question"
}

// ReviewHistory is append-only: every recorded review inserts a new row and
// nothing updates or deletes rows individually. The current scheduling state
// of a question is its most recent row. Seq is a database-assigned
// monotonically increasing tiebreaker so "most recent" stays well-defined
// even when two rows share the same reviewed_at timestamp.
type ReviewHistory struct {
  ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Seq             int64           `gorm:"column:seq;autoIncrement;uniqueIndex" json:"-"`
  UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User            *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  QuestionID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"question_id"`
  Question        *ReviewQuestion `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
  ReviewedAt      time.Time       `gorm:"column:reviewed_at;not null;index" json:"reviewed_at"`
  SelfRating      int             `gorm:"column:self_rating;not null" json:"self_rating"`
  NextReviewDate  time.Time       `gorm:"column:next_review_date;not null;index" json:"next_review_date"`
  IntervalDays    int             `gorm:"column:interval_days;not null" json:"interval_days"`
  EaseFactor      float64         `gorm:"column:ease_factor;not null" json:"ease_factor"`
  Repetitions     int             `gorm:"column:repetitions;not null" json:"repetitions"`
  CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (ReviewHistory) TableName() string {
  return "review_history"
}
