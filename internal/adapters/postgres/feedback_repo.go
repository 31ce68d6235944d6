package postgres

import (
	"context"

	"github.com/parksafe/parksafe/internal/core/domain"
)

// FeedbackRepo implements ports.FeedbackRepository.
type FeedbackRepo struct {
	db *DB
}

func NewFeedbackRepo(db *DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Insert(ctx context.Context, fb *domain.Feedback) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO feedback (id, user_id, category, message, rating)
		VALUES ($1, $2, $3, $4, $5)
	`, fb.ID, fb.UserID, fb.Category, fb.Message, fb.Rating)
	return translateErr(err)
}

func (r *FeedbackRepo) ListByUser(ctx context.Context, userID string) ([]domain.Feedback, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, category, message, rating, created_at
		FROM feedback WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.Category, &fb.Message, &fb.Rating, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// DeleteByUser removes all feedback of one user, reporting how many
// rows went away. Used by the account deletion workflow.
func (r *FeedbackRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM feedback WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
