package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
)

var feedbackCategories = map[string]bool{
	"bug":     true,
	"feature": true,
	"marker":  true,
	"other":   true,
}

// FeedbackService handles user feedback submissions.
type FeedbackService struct {
	feedback ports.FeedbackRepository
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(feedback ports.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedback: feedback}
}

// Submit validates and stores a feedback entry.
func (s *FeedbackService) Submit(ctx context.Context, userID, category, message string, rating int) (*domain.Feedback, error) {
	if userID == "" {
		return nil, fmt.Errorf("feedback needs a user")
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if !feedbackCategories[category] {
		return nil, fmt.Errorf("unknown feedback category %q", category)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("feedback message must not be empty")
	}
	if len(message) > 2000 {
		return nil, fmt.Errorf("feedback message too long (max 2000 characters)")
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Message:   message,
		Rating:    rating,
		CreatedAt: time.Now(),
	}
	if err := s.feedback.Insert(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// ListByUser returns the feedback a user has submitted, newest first.
func (s *FeedbackService) ListByUser(ctx context.Context, userID string) ([]domain.Feedback, error) {
	return s.feedback.ListByUser(ctx, userID)
}
