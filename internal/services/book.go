package services

import (
  "context"
  "fmt"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/types"
)

// BookDetail is the book page payload: the book, its chapters in reading
// order, and the latest active chat session with its transcript so the chat
// picks up where it left off.
type BookDetail struct {
  Book      *types.Book           `json:"book"`
  Chapters  []*types.Chapter      `json:"chapters"`
  SessionID *uuid.UUID            `json:"session_id"`
  Messages  []*types.ChatMessage  `json:"messages"`
}

type BookService interface {
  ListBooks(ctx context.Context) ([]*types.Book, error)
  GetBookDetail(ctx context.Context, bookID uuid.UUID) (*BookDetail, error)
  DeleteBook(ctx context.Context, bookID uuid.UUID) error
}

type bookService struct {
  db            *gorm.DB
  log           *logger.Logger
  bookRepo      repos.BookRepo
  chapterRepo   repos.ChapterRepo
  sectionRepo   repos.SectionRepo
  sessionRepo   repos.ChatSessionRepo
  messageRepo   repos.ChatMessageRepo
  questionRepo  repos.ReviewQuestionRepo
  historyRepo   repos.ReviewHistoryRepo
  bucketService BucketService
}

func NewBookService(
  db *gorm.DB,
  log *logger.Logger,
  bookRepo repos.BookRepo,
  chapterRepo repos.ChapterRepo,
  sectionRepo repos.SectionRepo,
  sessionRepo repos.ChatSessionRepo,
  messageRepo repos.ChatMessageRepo,
  questionRepo repos.ReviewQuestionRepo,
  historyRepo repos.ReviewHistoryRepo,
  bucketService BucketService,
) BookService {
  serviceLog := log.With("service", "BookService")
  return &bookService{
    db:            db,
    log:           serviceLog,
    bookRepo:      bookRepo,
    chapterRepo:   chapterRepo,
    sectionRepo:   sectionRepo,
    sessionRepo:   sessionRepo,
    messageRepo:   messageRepo,
    questionRepo:  questionRepo,
    historyRepo:   historyRepo,
    bucketService: bucketService,
  }
}

func (bs *bookService) ListBooks(ctx context.Context) ([]*types.Book, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  books, err := bs.bookRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch books: %w", err)
  }
  return books, nil
}

func (bs *bookService) GetBookDetail(ctx context.Context, bookID uuid.UUID) (*BookDetail, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  book, err := bs.bookRepo.GetByIDForUser(ctx, nil, bookID, rd.UserID)
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch book: %w", err)
  }
  if book == nil {
    return nil, fmt.Errorf("Book not found")
  }

  chapters, cErr := bs.chapterRepo.GetByBookIDs(ctx, nil, []uuid.UUID{bookID})
  if cErr != nil {
    return nil, fmt.Errorf("Failed to fetch chapters: %w", cErr)
  }

  detail := &BookDetail{
    Book:     book,
    Chapters: chapters,
    Messages: []*types.ChatMessage{},
  }

  session, sErr := bs.sessionRepo.GetLatestActiveForBook(ctx, nil, bookID, rd.UserID)
  if sErr != nil {
    return nil, fmt.Errorf("Failed to fetch latest session: %w", sErr)
  }
  if session != nil {
    detail.SessionID = &session.ID
    messages, mErr := bs.messageRepo.GetBySessionIDs(ctx, nil, []uuid.UUID{session.ID})
    if mErr != nil {
      return nil, fmt.Errorf("Failed to fetch session messages: %w", mErr)
    }
    detail.Messages = messages
  }
  return detail, nil
}

// DeleteBook removes the book and everything hanging off it: chapters and
// sections, chat sessions and messages, review questions and their history,
// and the stored PDF. Runs in one transaction; the bucket delete happens
// after commit and is best effort.
func (bs *bookService) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return fmt.Errorf("Unauthorized")
  }

  var pdfStorageKey string
  if err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    book, bErr := bs.bookRepo.GetByIDForUser(ctx, tx, bookID, rd.UserID)
    if bErr != nil {
      return fmt.Errorf("Failed to fetch book: %w", bErr)
    }
    if book == nil {
      return fmt.Errorf("Book not found")
    }
    pdfStorageKey = book.PDFStorageKey

    chapters, cErr := bs.chapterRepo.GetByBookIDs(ctx, tx, []uuid.UUID{bookID})
    if cErr != nil {
      return fmt.Errorf("Failed to fetch chapters: %w", cErr)
    }
    chapterIDs := make([]uuid.UUID, 0, len(chapters))
    for _, chapter := range chapters {
      chapterIDs = append(chapterIDs, chapter.ID)
    }
    if sErr := bs.sectionRepo.FullDeleteByChapterIDs(ctx, tx, chapterIDs); sErr != nil {
      return fmt.Errorf("Failed to delete sections: %w", sErr)
    }
    if cdErr := bs.chapterRepo.FullDeleteByBookIDs(ctx, tx, []uuid.UUID{bookID}); cdErr != nil {
      return fmt.Errorf("Failed to delete chapters: %w", cdErr)
    }

    questions, qErr := bs.questionRepo.GetByBookIDs(ctx, tx, []uuid.UUID{bookID})
    if qErr != nil {
      return fmt.Errorf("Failed to fetch review questions: %w", qErr)
    }
    questionIDs := make([]uuid.UUID, 0, len(questions))
    for _, question := range questions {
      questionIDs = append(questionIDs, question.ID)
    }
    if hErr := bs.historyRepo.FullDeleteByQuestionIDs(ctx, tx, questionIDs); hErr != nil {
      return fmt.Errorf("Failed to delete review history: %w", hErr)
    }
    if qdErr := bs.questionRepo.FullDeleteByBookIDs(ctx, tx, []uuid.UUID{bookID}); qdErr != nil {
      return fmt.Errorf("Failed to delete review questions: %w", qdErr)
    }

    sessions, ssErr := bs.sessionRepo.GetByBookIDs(ctx, tx, []uuid.UUID{bookID})
    if ssErr != nil {
      return fmt.Errorf("Failed to fetch chat sessions: %w", ssErr)
    }
    sessionIDs := make([]uuid.UUID, 0, len(sessions))
    for _, session := range sessions {
      sessionIDs = append(sessionIDs, session.ID)
    }
    if mErr := bs.messageRepo.FullDeleteBySessionIDs(ctx, tx, sessionIDs); mErr != nil {
      return fmt.Errorf("Failed to delete chat messages: %w", mErr)
    }
    if sdErr := bs.sessionRepo.FullDeleteByIDs(ctx, tx, sessionIDs); sdErr != nil {
      return fmt.Errorf("Failed to delete chat sessions: %w", sdErr)
    }

    if bdErr := bs.bookRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{bookID}); bdErr != nil {
      return fmt.Errorf("Failed to delete book: %w", bdErr)
    }
    return nil
  }); err != nil {
    return err
  }

  if pdfStorageKey != "" && bs.bucketService != nil {
    if dErr := bs.bucketService.DeleteObject(ctx, pdfStorageKey); dErr != nil {
      bs.log.Warn("Failed to delete book PDF from bucket", "key", pdfStorageKey, "error", dErr)
    }
  }
  return nil
}
