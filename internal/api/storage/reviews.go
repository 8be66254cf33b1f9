package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// CreateReview inserts a review. The jobs-unique constraint enforces
// at most one review per job; a duplicate maps to ErrReviewExists.
func (s *Store) CreateReview(ctx context.Context, r *model.Review) error {
	query := `
		INSERT INTO reviews (
			review_id, job_id, agent_id, worker_id, rating, comment, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.JobID, r.AgentID, r.WorkerID, r.Rating, r.Comment, r.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrReviewExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// GetReviewByJob returns the job's review, if one exists.
func (s *Store) GetReviewByJob(ctx context.Context, jobID string) (*model.Review, error) {
	query := `
		SELECT review_id, job_id, agent_id, worker_id, rating, comment, created_at
		FROM reviews
		WHERE job_id = $1
	`

	var review model.Review
	if err := s.db.GetContext(ctx, &review, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "review not found")
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return &review, nil
}
