package handlers

import (
  "errors"
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/aokimori/libretutor-backend/internal/services"
)

type ReviewHandler struct {
  reviewService     services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService) *ReviewHandler {
  return &ReviewHandler{reviewService: reviewService}
}

// POST /api/reviews
func (rh *ReviewHandler) RecordReview(c *gin.Context) {
  var req struct {
    QuestionID    string    `json:"question_id"`
    SelfRating    int       `json:"self_rating"`
    ReviewedAt    string    `json:"reviewed_at"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  questionID, err := uuid.Parse(req.QuestionID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
    return
  }
  var reviewedAt *time.Time
  if req.ReviewedAt != "" {
    t, pErr := time.Parse(time.RFC3339, req.ReviewedAt)
    if pErr != nil {
      RespondError(c, http.StatusBadRequest, "invalid_reviewed_at", pErr)
      return
    }
    reviewedAt = &t
  }

  review, err := rh.reviewService.RecordReview(c.Request.Context(), questionID, req.SelfRating, reviewedAt)
  if err != nil {
    if errors.Is(err, services.ErrInvalidRating) {
      RespondError(c, http.StatusBadRequest, "invalid_rating", err)
      return
    }
    RespondError(c, http.StatusBadRequest, "record_review_failed", err)
    return
  }
  RespondOK(c, gin.H{"review": review})
}

// GET /api/reviews/today
func (rh *ReviewHandler) DueToday(c *gin.Context) {
  due, err := rh.reviewService.DueToday(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadRequest, "due_today_failed", err)
    return
  }
  RespondOK(c, gin.H{"questions": due, "count": len(due)})
}
