package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

const jobColumns = `
	job_id, agent_id, title, description, category,
	latitude, longitude, address, radius_meters,
	required_trust_level, required_deliverables,
	payment_amount_cents, currency, escrow_hold_id,
	status, worker_id,
	assigned_at, started_at, submitted_at, completed_at, expires_at,
	rejection_count, last_rejection_reason,
	created_at, updated_at`

// CreateJob inserts a new job row. The escrow hold must already be
// funded; jobs are never inserted without one.
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, agent_id, title, description, category,
			latitude, longitude, address, radius_meters,
			required_trust_level, required_deliverables,
			payment_amount_cents, currency, escrow_hold_id,
			status, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16, $17, $18
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.AgentID,
		job.Title,
		job.Description,
		job.Category,
		job.Latitude,
		job.Longitude,
		job.Address,
		job.RadiusMeters,
		job.RequiredTrustLevel,
		job.RequiredDeliverables,
		job.PaymentAmountCents,
		job.Currency,
		job.EscrowHoldID,
		job.Status,
		job.ExpiresAt,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob fetches a job without an ownership scope. Callers apply
// their own authorization before acting on the result.
func (s *Store) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobForAgent fetches a job scoped to its owning agent. A row
// owned by someone else surfaces as not found.
func (s *Store) GetJobForAgent(ctx context.Context, jobID, agentID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT` + jobColumns + ` FROM jobs WHERE job_id = $1 AND agent_id = $2`

	err := s.db.GetContext(ctx, &job, query, jobID, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobForWorker fetches a job scoped to its assigned worker.
func (s *Store) GetJobForWorker(ctx context.Context, jobID, workerID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT` + jobColumns + ` FROM jobs WHERE job_id = $1 AND worker_id = $2`

	err := s.db.GetContext(ctx, &job, query, jobID, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListJobsByAgent returns the agent's jobs, newest first, optionally
// filtered by status.
func (s *Store) ListJobsByAgent(ctx context.Context, agentID string, status domain.JobStatus, limit, offset int) ([]model.Job, error) {
	query := `SELECT` + jobColumns + ` FROM jobs WHERE agent_id = $1`
	args := []interface{}{agentID}
	argIdx := 2

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, job_id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, ClampLimit(limit), offset)

	var jobs []model.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// AvailableJobsFilter scopes the worker-facing discovery query.
type AvailableJobsFilter struct {
	TrustLevel domain.TrustLevel
	// HasCoords enables the radius search; Latitude/Longitude/
	// RadiusMeters are ignored otherwise.
	HasCoords    bool
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Limit        int
}

// ListAvailableJobs returns open, non-expired jobs the worker's trust
// tier qualifies for. With coordinates, candidates are prefiltered by
// a bounding box in SQL, then exact-distance-filtered and sorted
// ascending. Without coordinates, jobs from agents with the deepest
// completion history come first.
func (s *Store) ListAvailableJobs(ctx context.Context, filter AvailableJobsFilter) ([]model.AvailableJob, error) {
	tiers := filter.TrustLevel.TiersAtOrBelow()
	tierNames := make([]string, len(tiers))
	for i, t := range tiers {
		tierNames[i] = string(t)
	}

	limit := ClampLimit(filter.Limit)

	if !filter.HasCoords {
		query := `
			SELECT j.job_id, j.agent_id, j.title, j.description, j.category,
			       j.latitude, j.longitude, j.address, j.radius_meters,
			       j.required_trust_level, j.required_deliverables,
			       j.payment_amount_cents, j.currency, j.escrow_hold_id,
			       j.status, j.worker_id,
			       j.assigned_at, j.started_at, j.submitted_at, j.completed_at, j.expires_at,
			       j.rejection_count, j.last_rejection_reason,
			       j.created_at, j.updated_at
			FROM jobs j
			JOIN agent_profiles a USING (agent_id)
			WHERE j.status = $1
			  AND j.expires_at > $2
			  AND j.required_trust_level = ANY($3)
			ORDER BY a.jobs_completed DESC, j.created_at DESC
			LIMIT $4
		`

		var jobs []model.Job
		err := s.db.SelectContext(ctx, &jobs, query,
			domain.JobStatusAvailable, time.Now(), pq.Array(tierNames), limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list available jobs: %w", err)
		}

		out := make([]model.AvailableJob, len(jobs))
		for i, j := range jobs {
			out[i] = model.AvailableJob{Job: j}
		}
		return out, nil
	}

	dLat, dLng := boundingBox(filter.Latitude, filter.RadiusMeters)

	query := `
		SELECT` + jobColumns + `
		FROM jobs
		WHERE status = $1
		  AND expires_at > $2
		  AND required_trust_level = ANY($3)
		  AND latitude BETWEEN $4 AND $5
		  AND longitude BETWEEN $6 AND $7
	`

	var candidates []model.Job
	err := s.db.SelectContext(ctx, &candidates, query,
		domain.JobStatusAvailable, time.Now(), pq.Array(tierNames),
		filter.Latitude-dLat, filter.Latitude+dLat,
		filter.Longitude-dLng, filter.Longitude+dLng,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list available jobs: %w", err)
	}

	jobs := make([]model.AvailableJob, 0, len(candidates))
	for _, j := range candidates {
		d := Haversine(filter.Latitude, filter.Longitude, j.Latitude, j.Longitude)
		if d <= filter.RadiusMeters {
			jobs = append(jobs, model.AvailableJob{Job: j, DistanceMeters: d})
		}
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].DistanceMeters < jobs[k].DistanceMeters
	})

	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

// MarkAssigned transitions available → assigned for the accepting
// worker. Zero rows updated means the job is gone or no longer
// available: the caller lost the race.
func (s *Store) MarkAssigned(ctx context.Context, jobID, workerID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    assigned_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	return s.conditionalUpdate(ctx, "assign", query,
		domain.JobStatusAssigned, workerID, jobID, domain.JobStatusAvailable)
}

// MarkStarted transitions assigned → in_progress for the assigned worker.
func (s *Store) MarkStarted(ctx context.Context, jobID, workerID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND worker_id = $3
		  AND status = $4
	`

	return s.conditionalUpdate(ctx, "start", query,
		domain.JobStatusInProgress, jobID, workerID, domain.JobStatusAssigned)
}

// MarkSubmitted transitions in_progress → submitted for the assigned worker.
func (s *Store) MarkSubmitted(ctx context.Context, jobID, workerID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    submitted_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND worker_id = $3
		  AND status = $4
	`

	return s.conditionalUpdate(ctx, "submit", query,
		domain.JobStatusSubmitted, jobID, workerID, domain.JobStatusInProgress)
}

// MarkCompleted transitions submitted → completed for the owning agent.
func (s *Store) MarkCompleted(ctx context.Context, jobID, agentID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND agent_id = $3
		  AND status = $4
	`

	return s.conditionalUpdate(ctx, "complete", query,
		domain.JobStatusCompleted, jobID, agentID, domain.JobStatusSubmitted)
}

// MarkRejectedKeepAssigned transitions submitted → in_progress,
// keeping the worker on the job for another attempt.
func (s *Store) MarkRejectedKeepAssigned(ctx context.Context, jobID, agentID, reason string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    submitted_at = NULL,
		    rejection_count = rejection_count + 1,
		    last_rejection_reason = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND agent_id = $4
		  AND status = $5
	`

	return s.conditionalUpdate(ctx, "reject_keep", query,
		domain.JobStatusInProgress, reason, jobID, agentID, domain.JobStatusSubmitted)
}

// MarkRejectedReleased transitions submitted → available, clearing
// the assignment entirely so the job returns to the pool.
func (s *Store) MarkRejectedReleased(ctx context.Context, jobID, agentID, reason string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = NULL,
		    assigned_at = NULL,
		    started_at = NULL,
		    submitted_at = NULL,
		    rejection_count = rejection_count + 1,
		    last_rejection_reason = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND agent_id = $4
		  AND status = $5
	`

	return s.conditionalUpdate(ctx, "reject_release", query,
		domain.JobStatusAvailable, reason, jobID, agentID, domain.JobStatusSubmitted)
}

// MarkCancelled transitions expect → cancelled for the owning agent.
// The caller decides refund and compensation from the expected prior
// status, so the update must only land if that status still holds.
func (s *Store) MarkCancelled(ctx context.Context, jobID, agentID string, expect domain.JobStatus) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND agent_id = $3
		  AND status = $4
	`

	return s.conditionalUpdate(ctx, "cancel", query,
		domain.JobStatusCancelled, jobID, agentID, expect)
}

// conditionalUpdate runs a compare-and-set update. Zero affected rows
// is the losing side of optimistic concurrency and maps to the
// shared precondition error, which deliberately does not distinguish
// absence, foreign ownership, and status mismatch.
func (s *Store) conditionalUpdate(ctx context.Context, transition, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s job: %w", transition, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s job: %w", transition, err)
	}

	if affected == 0 {
		s.logger.Warn("Conditional job update matched no row",
			slog.String("transition", transition),
		)
		return domain.ErrJobConflict
	}

	return nil
}
