package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/aokimori/libretutor-backend/internal/clients/pinecone"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/sse"
  "github.com/aokimori/libretutor-backend/internal/types"
)

const (
  maxSectionsPerChapter = 5

  // Rough chars-per-token for mixed prose; good enough for reading
  // estimates and embedding batch sizing.
  charsPerToken = 3

  defaultSectionMinutes = 5

  upsertBatchSize   = 100
  upsertConcurrency = 4
)

const tocExtractionPrompt = `Analyze the attached PDF book and extract its table of contents.

Return JSON in exactly this shape:
{
  "title": "book title",
  "author": "author name or empty string",
  "total_pages": 123,
  "chapters": [
    {"chapter_number": 1, "title": "chapter title", "start_page": 1, "end_page": 20}
  ]
}

Rules:
- List every top-level chapter in reading order.
- Use the printed page numbers when the table of contents shows them.
- If the author is not stated, use an empty string.`

const chapterExtractionPromptFmt = `Extract chapter %d ("%s") from the attached PDF book.

Return JSON in exactly this shape:
{
  "chapter_number": %d,
  "title": "chapter title",
  "summary": "2-3 sentence summary of the chapter",
  "sections": [
    {"section_number": "%d.1", "title": "section title", "content": "full text of the section"}
  ]
}

Rules:
- Split the chapter into at most %d sections at its natural boundaries.
- Include the complete text of each section, cleaned of page headers and footers.
- Keep the original language of the book.`

// ChapterOutline is one chapters_data entry: where a chapter sits in the PDF,
// captured at intake so each chapter can be extracted independently later.
type ChapterOutline struct {
  ChapterNumber int    `json:"chapter_number"`
  Title         string `json:"title"`
  StartPage     int    `json:"start_page"`
  EndPage       int    `json:"end_page"`
}

type tocExtraction struct {
  Title      string           `json:"title"`
  Author     string           `json:"author"`
  TotalPages int              `json:"total_pages"`
  Chapters   []ChapterOutline `json:"chapters"`
}

type chapterExtraction struct {
  ChapterNumber int    `json:"chapter_number"`
  Title         string `json:"title"`
  Summary       string `json:"summary"`
  Sections      []struct {
    SectionNumber string `json:"section_number"`
    Title         string `json:"title"`
    Content       string `json:"content"`
  } `json:"sections"`
}

type ProcessPDFInput struct {
  Title  string
  Author string
  PDF    []byte
}

type ProcessChapterResult struct {
  Chapter           *types.Chapter `json:"chapter"`
  SectionsCount     int            `json:"sections_count"`
  ProcessedChapters int            `json:"processed_chapters"`
  TotalChapters     int            `json:"total_chapters"`
  Completed         bool           `json:"completed"`
}

type IngestionService interface {
  // ProcessPDF stores the PDF, extracts its table of contents and creates the
  // book in "processing" state. Chapters are extracted one at a time through
  // ProcessChapter so a failure mid-book loses one chapter, not the book.
  ProcessPDF(ctx context.Context, input ProcessPDFInput) (*types.Book, error)
  ProcessChapter(ctx context.Context, bookID uuid.UUID, chapterIndex int) (*ProcessChapterResult, error)
}

type ingestionService struct {
  db            *gorm.DB
  log           *logger.Logger
  bookRepo      repos.BookRepo
  chapterRepo   repos.ChapterRepo
  sectionRepo   repos.SectionRepo
  bucketService BucketService
  docExtractor  DocExtractor
  openAIClient  OpenAIClient
  vectorStore   pinecone.VectorStore
  sseBus        SSEBus
}

func NewIngestionService(
  db *gorm.DB,
  log *logger.Logger,
  bookRepo repos.BookRepo,
  chapterRepo repos.ChapterRepo,
  sectionRepo repos.SectionRepo,
  bucketService BucketService,
  docExtractor DocExtractor,
  openAIClient OpenAIClient,
  vectorStore pinecone.VectorStore,
  sseBus SSEBus,
) IngestionService {
  return &ingestionService{
    db:            db,
    log:           log.With("service", "IngestionService"),
    bookRepo:      bookRepo,
    chapterRepo:   chapterRepo,
    sectionRepo:   sectionRepo,
    bucketService: bucketService,
    docExtractor:  docExtractor,
    openAIClient:  openAIClient,
    vectorStore:   vectorStore,
    sseBus:        sseBus,
  }
}

func (is *ingestionService) ProcessPDF(ctx context.Context, input ProcessPDFInput) (*types.Book, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  if len(input.PDF) == 0 {
    return nil, fmt.Errorf("Missing PDF file")
  }

  storageKey := fmt.Sprintf("books/%s/%s.pdf", rd.UserID, uuid.New())
  if err := is.bucketService.UploadObject(ctx, storageKey, bytes.NewReader(input.PDF)); err != nil {
    return nil, fmt.Errorf("Failed to store PDF: %w", err)
  }

  rawTOC, err := is.docExtractor.ExtractJSON(ctx, input.PDF, tocExtractionPrompt, tocMaxOutputTokens)
  if err != nil {
    return nil, fmt.Errorf("Failed to extract table of contents: %w", err)
  }
  var toc tocExtraction
  if err := json.Unmarshal(rawTOC, &toc); err != nil {
    is.log.Warn("Unparseable TOC extraction", "error", err, "raw", string(rawTOC))
    return nil, fmt.Errorf("Failed to parse table of contents")
  }
  if len(toc.Chapters) == 0 {
    return nil, fmt.Errorf("No chapters found in PDF")
  }

  title := strings.TrimSpace(input.Title)
  if title == "" {
    title = strings.TrimSpace(toc.Title)
  }
  if title == "" {
    return nil, fmt.Errorf("Could not determine book title")
  }
  author := strings.TrimSpace(input.Author)
  if author == "" {
    author = strings.TrimSpace(toc.Author)
  }

  chaptersData, err := json.Marshal(toc.Chapters)
  if err != nil {
    return nil, fmt.Errorf("Failed to marshal chapter outline: %w", err)
  }

  book := &types.Book{
    ID:               uuid.New(),
    UserID:           rd.UserID,
    Title:            title,
    Author:           author,
    TotalPages:       toc.TotalPages,
    TotalChapters:    len(toc.Chapters),
    PDFStorageKey:    storageKey,
    PDFURL:           is.bucketService.GetPublicURL(storageKey),
    ProcessingStatus: "processing",
    ChaptersData:     datatypes.JSON(chaptersData),
  }
  if _, err := is.bookRepo.Create(ctx, nil, []*types.Book{book}); err != nil {
    return nil, fmt.Errorf("Failed to create book: %w", err)
  }

  is.publish(ctx, rd.UserID, sse.SSEEventBookProcessingStarted, map[string]any{
    "book_id":        book.ID,
    "title":          book.Title,
    "total_chapters": book.TotalChapters,
  })
  return book, nil
}

func (is *ingestionService) ProcessChapter(ctx context.Context, bookID uuid.UUID, chapterIndex int) (*ProcessChapterResult, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  book, err := is.bookRepo.GetByIDForUser(ctx, nil, bookID, rd.UserID)
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch book: %w", err)
  }
  if book == nil {
    return nil, fmt.Errorf("Book not found")
  }

  var outline []ChapterOutline
  if err := json.Unmarshal(book.ChaptersData, &outline); err != nil {
    return nil, fmt.Errorf("Failed to parse chapter outline: %w", err)
  }
  if chapterIndex < 0 || chapterIndex >= len(outline) {
    return nil, fmt.Errorf("Chapter index out of range")
  }
  entry := outline[chapterIndex]

  result, err := is.processChapterEntry(ctx, book, entry)
  if err != nil {
    if uErr := is.bookRepo.UpdateProcessingProgress(ctx, nil, book.ID, book.ProcessedChapters, "failed"); uErr != nil {
      is.log.Warn("Failed to mark book failed", "error", uErr)
    }
    is.publish(ctx, rd.UserID, sse.SSEEventBookProcessingFailed, map[string]any{
      "book_id":        book.ID,
      "chapter_number": entry.ChapterNumber,
      "error":          err.Error(),
    })
    return nil, err
  }

  event := sse.SSEEventBookProcessingProgress
  if result.Completed {
    event = sse.SSEEventBookProcessingCompleted
  }
  is.publish(ctx, rd.UserID, event, map[string]any{
    "book_id":            book.ID,
    "processed_chapters": result.ProcessedChapters,
    "total_chapters":     result.TotalChapters,
  })
  return result, nil
}

func (is *ingestionService) processChapterEntry(ctx context.Context, book *types.Book, entry ChapterOutline) (*ProcessChapterResult, error) {
  pdf, err := is.bucketService.DownloadObject(ctx, book.PDFStorageKey)
  if err != nil {
    return nil, fmt.Errorf("Failed to download PDF: %w", err)
  }

  prompt := fmt.Sprintf(chapterExtractionPromptFmt,
    entry.ChapterNumber, entry.Title,
    entry.ChapterNumber, entry.ChapterNumber,
    maxSectionsPerChapter,
  )
  rawChapter, err := is.docExtractor.ExtractJSON(ctx, pdf, prompt, chapterMaxOutputTokens)
  if err != nil {
    return nil, fmt.Errorf("Failed to extract chapter %d: %w", entry.ChapterNumber, err)
  }
  var extracted chapterExtraction
  if err := json.Unmarshal(rawChapter, &extracted); err != nil {
    is.log.Warn("Unparseable chapter extraction", "error", err, "chapter_number", entry.ChapterNumber)
    return nil, fmt.Errorf("Failed to parse chapter %d", entry.ChapterNumber)
  }
  if len(extracted.Sections) == 0 {
    return nil, fmt.Errorf("Chapter %d extraction returned no sections", entry.ChapterNumber)
  }
  if len(extracted.Sections) > maxSectionsPerChapter {
    extracted.Sections = extracted.Sections[:maxSectionsPerChapter]
  }

  title := strings.TrimSpace(extracted.Title)
  if title == "" {
    title = entry.Title
  }
  chapter := &types.Chapter{
    ID:            uuid.New(),
    BookID:        book.ID,
    ChapterNumber: entry.ChapterNumber,
    Title:         title,
    Summary:       extracted.Summary,
  }

  sections := make([]*types.Section, 0, len(extracted.Sections))
  for i, es := range extracted.Sections {
    sectionNumber := strings.TrimSpace(es.SectionNumber)
    if sectionNumber == "" {
      sectionNumber = fmt.Sprintf("%d.%d", entry.ChapterNumber, i+1)
    }
    tokenCount := estimateTokenCount(es.Content)
    sections = append(sections, &types.Section{
      ID:               uuid.New(),
      ChapterID:        chapter.ID,
      SectionNumber:    sectionNumber,
      Title:            es.Title,
      Content:          es.Content,
      TokenCount:       tokenCount,
      EstimatedMinutes: defaultSectionMinutes,
    })
  }

  processed := book.ProcessedChapters + 1
  status := "processing"
  if processed >= book.TotalChapters {
    status = "completed"
  }

  if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, cErr := is.chapterRepo.Create(ctx, tx, []*types.Chapter{chapter}); cErr != nil {
      return fmt.Errorf("Failed to create chapter: %w", cErr)
    }
    if _, sErr := is.sectionRepo.Create(ctx, tx, sections); sErr != nil {
      return fmt.Errorf("Failed to create sections: %w", sErr)
    }
    if uErr := is.bookRepo.UpdateProcessingProgress(ctx, tx, book.ID, processed, status); uErr != nil {
      return fmt.Errorf("Failed to update processing progress: %w", uErr)
    }
    return nil
  }); err != nil {
    return nil, err
  }

  if err := is.indexSections(ctx, book.ID, chapter, sections); err != nil {
    // The chapter text is saved; semantic search just misses these
    // sections until the book is reprocessed.
    is.log.Warn("Failed to index chapter sections", "error", err, "chapter_id", chapter.ID)
  }

  return &ProcessChapterResult{
    Chapter:           chapter,
    SectionsCount:     len(sections),
    ProcessedChapters: processed,
    TotalChapters:     book.TotalChapters,
    Completed:         status == "completed",
  }, nil
}

// indexSections embeds each section and upserts the vectors into the book's
// namespace in parallel batches.
func (is *ingestionService) indexSections(ctx context.Context, bookID uuid.UUID, chapter *types.Chapter, sections []*types.Section) error {
  texts := make([]string, 0, len(sections))
  for _, section := range sections {
    texts = append(texts, section.Title+"\n\n"+section.Content)
  }
  embeddings, err := is.openAIClient.Embed(ctx, texts)
  if err != nil {
    return fmt.Errorf("embedding failed: %w", err)
  }
  if len(embeddings) != len(sections) {
    return fmt.Errorf("embedding count mismatch: got %d for %d sections", len(embeddings), len(sections))
  }

  vectors := make([]pinecone.Vector, 0, len(sections))
  for i, section := range sections {
    vectors = append(vectors, pinecone.Vector{
      ID:     section.ID.String(),
      Values: embeddings[i],
      Metadata: map[string]any{
        "chapter_id":     chapter.ID.String(),
        "chapter_number": chapter.ChapterNumber,
        "section_number": section.SectionNumber,
        "title":          section.Title,
      },
    })
  }

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(upsertConcurrency)
  for start := 0; start < len(vectors); start += upsertBatchSize {
    end := start + upsertBatchSize
    if end > len(vectors) {
      end = len(vectors)
    }
    batch := vectors[start:end]
    g.Go(func() error {
      return is.vectorStore.Upsert(gctx, bookID.String(), batch)
    })
  }
  return g.Wait()
}

func (is *ingestionService) publish(ctx context.Context, userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
  if is.sseBus == nil {
    return
  }
  if err := is.sseBus.Publish(ctx, sse.SSEMessage{
    Channel: sse.UserChannel(userID),
    Event:   event,
    Data:    data,
  }); err != nil {
    is.log.Warn("Failed to publish book processing event", "error", err, "event", event)
  }
}

func estimateTokenCount(text string) int {
  if text == "" {
    return 0
  }
  return (len(text) + charsPerToken - 1) / charsPerToken
}
