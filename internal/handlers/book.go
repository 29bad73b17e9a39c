package handlers

import (
  "io"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/aokimori/libretutor-backend/internal/services"
)

// 50 MB cap on uploaded PDFs.
const maxPDFBytes = 50 << 20

type BookHandler struct {
  bookService       services.BookService
  ingestionService  services.IngestionService
}

func NewBookHandler(bookService services.BookService, ingestionService services.IngestionService) *BookHandler {
  return &BookHandler{bookService: bookService, ingestionService: ingestionService}
}

// GET /api/books
func (bh *BookHandler) ListBooks(c *gin.Context) {
  books, err := bh.bookService.ListBooks(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadRequest, "list_books_failed", err)
    return
  }
  RespondOK(c, gin.H{"books": books})
}

// GET /api/books/:id
func (bh *BookHandler) GetBook(c *gin.Context) {
  bookID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_book_id", err)
    return
  }
  detail, err := bh.bookService.GetBookDetail(c.Request.Context(), bookID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "book_not_found", err)
    return
  }
  RespondOK(c, detail)
}

// DELETE /api/books/:id
func (bh *BookHandler) DeleteBook(c *gin.Context) {
  bookID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_book_id", err)
    return
  }
  if err := bh.bookService.DeleteBook(c.Request.Context(), bookID); err != nil {
    RespondError(c, http.StatusBadRequest, "delete_book_failed", err)
    return
  }
  RespondOK(c, gin.H{"message": "book deleted"})
}

// POST /api/books/process-pdf (multipart: file, title?, author?)
func (bh *BookHandler) ProcessPDF(c *gin.Context) {
  fileHeader, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_file", err)
    return
  }
  if fileHeader.Size > maxPDFBytes {
    c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "PDF too large"})
    return
  }
  f, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }
  defer f.Close()
  pdf, err := io.ReadAll(io.LimitReader(f, maxPDFBytes+1))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }

  book, err := bh.ingestionService.ProcessPDF(c.Request.Context(), services.ProcessPDFInput{
    Title:  c.PostForm("title"),
    Author: c.PostForm("author"),
    PDF:    pdf,
  })
  if err != nil {
    RespondError(c, http.StatusBadRequest, "process_pdf_failed", err)
    return
  }
  RespondOK(c, gin.H{"book": book})
}

// POST /api/books/:id/process-chapter
func (bh *BookHandler) ProcessChapter(c *gin.Context) {
  bookID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_book_id", err)
    return
  }
  var req struct {
    ChapterIndex    int   `json:"chapter_index"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
    return
  }
  result, err := bh.ingestionService.ProcessChapter(c.Request.Context(), bookID, req.ChapterIndex)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "process_chapter_failed", err)
    return
  }
  RespondOK(c, result)
}
