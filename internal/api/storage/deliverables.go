package storage

import (
	"context"
	"fmt"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

// CreateDeliverable inserts a deliverable row.
func (s *Store) CreateDeliverable(ctx context.Context, d *model.Deliverable) error {
	query := `
		INSERT INTO deliverables (
			deliverable_id, job_id, worker_id, kind, storage_key,
			size_bytes, media_type, caption,
			capture_lat, capture_lng, captured_at, verified, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.JobID, d.WorkerID, d.Kind, d.StorageKey,
		d.SizeBytes, d.MediaType, d.Caption,
		d.CaptureLat, d.CaptureLng, d.CapturedAt, d.Verified, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deliverable: %w", err)
	}

	return nil
}

// ListDeliverablesByJob returns a job's deliverables oldest first.
func (s *Store) ListDeliverablesByJob(ctx context.Context, jobID string) ([]model.Deliverable, error) {
	query := `
		SELECT deliverable_id, job_id, worker_id, kind, storage_key,
		       size_bytes, media_type, caption,
		       capture_lat, capture_lng, captured_at, verified, created_at
		FROM deliverables
		WHERE job_id = $1
		ORDER BY created_at ASC
	`

	var deliverables []model.Deliverable
	if err := s.db.SelectContext(ctx, &deliverables, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list deliverables: %w", err)
	}

	return deliverables, nil
}

// CountDeliverablesByJob returns how many deliverables a job has.
func (s *Store) CountDeliverablesByJob(ctx context.Context, jobID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM deliverables WHERE job_id = $1`

	if err := s.db.GetContext(ctx, &count, query, jobID); err != nil {
		return 0, fmt.Errorf("failed to count deliverables: %w", err)
	}

	return count, nil
}

// DeleteDeliverablesByJob removes every deliverable row for a job and
// returns the storage keys that were backing them, so the caller can
// clean up the object store.
func (s *Store) DeleteDeliverablesByJob(ctx context.Context, jobID string) ([]string, error) {
	query := `DELETE FROM deliverables WHERE job_id = $1 RETURNING storage_key`

	var keys []string
	if err := s.db.SelectContext(ctx, &keys, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to delete deliverables: %w", err)
	}

	return keys, nil
}
