// Package reviews handles post-completion ratings. A worker's rating
// is a running average maintained incrementally, never recomputed
// from the full review history.
package reviews

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// Store is the persistence surface the review service needs.
type Store interface {
	GetJobForAgent(ctx context.Context, jobID, agentID string) (*model.Job, error)
	CreateReview(ctx context.Context, r *model.Review) error
	GetWorkerRating(ctx context.Context, workerID string) (avg float64, count int, err error)
	SetWorkerRating(ctx context.Context, workerID string, avg float64, count int) error
}

// Service is the review service.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates the review service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create records the agent's rating for a completed job and folds it
// into the worker's running average:
//
//	new_avg = (old_avg*old_count + rating) / (old_count + 1)
//
// At most one review exists per job.
func (s *Service) Create(ctx context.Context, agentID, jobID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.E(domain.KindValidation, "rating must be between 1 and 5")
	}

	job, err := s.store.GetJobForAgent(ctx, jobID, agentID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusCompleted {
		return nil, domain.E(domain.KindPreconditionFailed, "only completed jobs can be reviewed")
	}

	workerID := job.WorkerID.String

	review := &model.Review{
		ID:        uuid.New().String(),
		JobID:     jobID,
		AgentID:   agentID,
		WorkerID:  workerID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	oldAvg, oldCount, err := s.store.GetWorkerRating(ctx, workerID)
	if err != nil {
		return nil, err
	}

	newCount := oldCount + 1
	newAvg := (oldAvg*float64(oldCount) + float64(rating)) / float64(newCount)

	if err := s.store.SetWorkerRating(ctx, workerID, newAvg, newCount); err != nil {
		return nil, err
	}

	s.logger.Info("Review recorded",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.Int("rating", rating),
		slog.Float64("new_avg", newAvg),
	)

	return review, nil
}
