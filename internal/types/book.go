package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type Book struct {
  ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User              *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Title             string          `gorm:"column:title;not null" json:"title"`
  Author            string          `gorm:"column:author" json:"author"`
  TotalPages        int             `gorm:"column:total_pages" json:"total_pages"`
  TotalChapters     int             `gorm:"column:total_chapters;not null;default:0" json:"total_chapters"`
  ProcessedChapters int             `gorm:"column:processed_chapters;not null;default:0" json:"processed_chapters"`
  PDFStorageKey     string          `gorm:"column:pdf_storage_key;not null" json:"pdf_storage_key"`
  PDFURL            string          `gorm:"column:pdf_url" json:"pdf_url"`
  ProcessingStatus  string          `gorm:"column:processing_status;not null;default:'pending'" json:"processing_status"` // pending|processing|completed|failed
  ChaptersData      datatypes.JSON  `gorm:"column:chapters_data;type:jsonb" json:"chapters_data"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Book) TableName() string {
  return "book"
}

type Chapter struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  BookID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"book_id"`
  Book          *Book           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BookID;references:ID" json:"book,omitempty"`
  ChapterNumber int             `gorm:"column:chapter_number;not null" json:"chapter_number"`
  Title         string          `gorm:"column:title;not null" json:"title"`
  Summary       string          `gorm:"column:summary" json:"summary"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chapter) TableName() string {
  return "chapter"
}

type Section struct {
  ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ChapterID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"chapter_id"`
  Chapter           *Chapter        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"chapter,omitempty"`
  SectionNumber     string          `gorm:"column:section_number;not null" json:"section_number"`
  Title             string          `gorm:"column:title;not null" json:"title"`
  Content           string          `gorm:"column:content" json:"content"`
  TokenCount        int             `gorm:"column:token_count" json:"token_count"`
  EstimatedMinutes  int             `gorm:"column:estimated_minutes" json:"estimated_minutes"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Section) TableName() string {
  return "section"
}
