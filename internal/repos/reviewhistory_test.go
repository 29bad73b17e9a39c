package repos

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/aokimori/libretutor-backend/internal/srs"
  "github.com/aokimori/libretutor-backend/internal/types"
)

func seedReviewUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
  tb.Helper()
  u := &types.User{
    ID:          uuid.New(),
    Email:       email,
    Password:    "pw",
    DisplayName: "Reviewer",
  }
  if err := tx.WithContext(ctx).Create(u).Error; err != nil {
    tb.Fatalf("seed user: %v", err)
  }
  return u
}

func seedReviewQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.ReviewQuestion {
  tb.Helper()
  b := &types.Book{
    ID:            uuid.New(),
    UserID:        userID,
    Title:         "book-" + uuid.NewString(),
    PDFStorageKey: "imported",
  }
  if err := tx.WithContext(ctx).Create(b).Error; err != nil {
    tb.Fatalf("seed book: %v", err)
  }
  q := &types.ReviewQuestion{
    ID:              uuid.New(),
    UserID:          userID,
    BookID:          b.ID,
    Question:        "q",
    Answer:          "a",
    DifficultyLevel: 3,
  }
  if err := tx.WithContext(ctx).Create(q).Error; err != nil {
    tb.Fatalf("seed question: %v", err)
  }
  return q
}

func historyRow(userID, questionID uuid.UUID, reviewedAt, nextReview time.Time) *types.ReviewHistory {
  return &types.ReviewHistory{
    ID:             uuid.New(),
    UserID:         userID,
    QuestionID:     questionID,
    ReviewedAt:     reviewedAt,
    SelfRating:     4,
    NextReviewDate: srs.DateOnly(nextReview),
    IntervalDays:   1,
    EaseFactor:     2.5,
    Repetitions:    1,
  }
}

func TestReviewHistoryRepoLatestPerQuestion(t *testing.T) {
  db := testDB(t)
  tx := testTx(t, db)
  ctx := context.Background()
  repo := NewReviewHistoryRepo(db, testLogger(t))

  u := seedReviewUser(t, ctx, tx, "latest-per-question@example.com")
  q := seedReviewQuestion(t, ctx, tx, u.ID)

  now := time.Now()
  older := historyRow(u.ID, q.ID, now.Add(-48*time.Hour), now)
  newer := historyRow(u.ID, q.ID, now.Add(-1*time.Hour), now.Add(72*time.Hour))
  if _, err := repo.Append(ctx, tx, []*types.ReviewHistory{older, newer}); err != nil {
    t.Fatalf("Append: %v", err)
  }

  latest, err := repo.GetLatestByQuestionIDs(ctx, tx, []uuid.UUID{q.ID})
  if err != nil {
    t.Fatalf("GetLatestByQuestionIDs: %v", err)
  }
  row, ok := latest[q.ID]
  if !ok {
    t.Fatalf("no latest row for question")
  }
  if row.ID != newer.ID {
    t.Fatalf("latest = %s, want %s", row.ID, newer.ID)
  }
}

func TestReviewHistoryRepoSeqBreaksTimestampTies(t *testing.T) {
  db := testDB(t)
  tx := testTx(t, db)
  ctx := context.Background()
  repo := NewReviewHistoryRepo(db, testLogger(t))

  u := seedReviewUser(t, ctx, tx, "seq-tiebreak@example.com")
  q := seedReviewQuestion(t, ctx, tx, u.ID)

  reviewedAt := time.Now().Add(-1 * time.Hour).Truncate(time.Second)
  first := historyRow(u.ID, q.ID, reviewedAt, time.Now())
  second := historyRow(u.ID, q.ID, reviewedAt, time.Now().Add(24*time.Hour))
  if _, err := repo.Append(ctx, tx, []*types.ReviewHistory{first}); err != nil {
    t.Fatalf("Append first: %v", err)
  }
  if _, err := repo.Append(ctx, tx, []*types.ReviewHistory{second}); err != nil {
    t.Fatalf("Append second: %v", err)
  }
  if second.Seq <= first.Seq {
    t.Fatalf("seq not monotonic: first=%d second=%d", first.Seq, second.Seq)
  }

  latest, err := repo.GetLatestByQuestionIDs(ctx, tx, []uuid.UUID{q.ID})
  if err != nil {
    t.Fatalf("GetLatestByQuestionIDs: %v", err)
  }
  if latest[q.ID].ID != second.ID {
    t.Fatalf("latest = %s, want the later-inserted row %s", latest[q.ID].ID, second.ID)
  }
}

func TestReviewHistoryRepoGetDueLatest(t *testing.T) {
  db := testDB(t)
  tx := testTx(t, db)
  ctx := context.Background()
  repo := NewReviewHistoryRepo(db, testLogger(t))

  u := seedReviewUser(t, ctx, tx, "due-latest@example.com")
  today := time.Now()

  // Due: next review scheduled for yesterday.
  qOverdue := seedReviewQuestion(t, ctx, tx, u.ID)
  // Due: scheduled for exactly today (inclusive boundary).
  qToday := seedReviewQuestion(t, ctx, tx, u.ID)
  // Not due: scheduled for tomorrow.
  qTomorrow := seedReviewQuestion(t, ctx, tx, u.ID)
  // Not due: an old overdue row superseded by a recent review pushing the
  // next date into the future.
  qSuperseded := seedReviewQuestion(t, ctx, tx, u.ID)

  rows := []*types.ReviewHistory{
    historyRow(u.ID, qOverdue.ID, today.Add(-72*time.Hour), today.Add(-24*time.Hour)),
    historyRow(u.ID, qToday.ID, today.Add(-24*time.Hour), today),
    historyRow(u.ID, qTomorrow.ID, today.Add(-24*time.Hour), today.Add(24*time.Hour)),
    historyRow(u.ID, qSuperseded.ID, today.Add(-96*time.Hour), today.Add(-48*time.Hour)),
    historyRow(u.ID, qSuperseded.ID, today.Add(-1*time.Hour), today.Add(144*time.Hour)),
  }
  if _, err := repo.Append(ctx, tx, rows); err != nil {
    t.Fatalf("Append: %v", err)
  }

  due, err := repo.GetDueLatest(ctx, tx, u.ID, today)
  if err != nil {
    t.Fatalf("GetDueLatest: %v", err)
  }

  dueByQuestion := make(map[uuid.UUID]bool, len(due))
  for _, row := range due {
    dueByQuestion[row.QuestionID] = true
  }
  if !dueByQuestion[qOverdue.ID] {
    t.Errorf("overdue question missing from due set")
  }
  if !dueByQuestion[qToday.ID] {
    t.Errorf("question due today missing from due set")
  }
  if dueByQuestion[qTomorrow.ID] {
    t.Errorf("question due tomorrow should not be in due set")
  }
  if dueByQuestion[qSuperseded.ID] {
    t.Errorf("superseded question should not be due; only the latest row counts")
  }
  if len(due) != 2 {
    t.Fatalf("due count = %d, want 2", len(due))
  }
}
