package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// GetWorkerProfile fetches a worker's marketplace profile.
func (s *Store) GetWorkerProfile(ctx context.Context, workerID string) (*model.WorkerProfile, error) {
	query := `
		SELECT worker_id, display_name, trust_level,
		       jobs_completed, total_earned_cents, rating_avg, rating_count, created_at
		FROM worker_profiles
		WHERE worker_id = $1
	`

	var profile model.WorkerProfile
	if err := s.db.GetContext(ctx, &profile, query, workerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "worker not found")
		}
		return nil, fmt.Errorf("failed to get worker profile: %w", err)
	}

	return &profile, nil
}

// GetWorkerBySessionToken resolves the worker identity behind a
// presented session token. Token issuance and hashing belong to the
// authentication collaborator; this lookup treats tokens as opaque.
func (s *Store) GetWorkerBySessionToken(ctx context.Context, token string) (*model.WorkerProfile, error) {
	query := `
		SELECT w.worker_id, w.display_name, w.trust_level,
		       w.jobs_completed, w.total_earned_cents, w.rating_avg, w.rating_count, w.created_at
		FROM worker_profiles w
		JOIN worker_sessions ws ON ws.worker_id = w.worker_id
		WHERE ws.token = $1
		  AND ws.expires_at > NOW()
	`

	var profile model.WorkerProfile
	if err := s.db.GetContext(ctx, &profile, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindUnauthenticated, "invalid or expired session token")
		}
		return nil, fmt.Errorf("failed to resolve session token: %w", err)
	}

	return &profile, nil
}

// GetAgentByKey resolves the agent identity behind a presented API key.
func (s *Store) GetAgentByKey(ctx context.Context, apiKey string) (*model.AgentProfile, error) {
	query := `
		SELECT agent_id, display_name, jobs_created, jobs_completed, total_spent_cents, created_at
		FROM agent_profiles
		WHERE api_key = $1
	`

	var profile model.AgentProfile
	if err := s.db.GetContext(ctx, &profile, query, apiKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindUnauthenticated, "invalid agent key")
		}
		return nil, fmt.Errorf("failed to resolve agent key: %w", err)
	}

	return &profile, nil
}

// IncrementAgentJobsCreated bumps the agent's created counter after a
// successful job insert.
func (s *Store) IncrementAgentJobsCreated(ctx context.Context, agentID string) error {
	query := `UPDATE agent_profiles SET jobs_created = jobs_created + 1 WHERE agent_id = $1`

	if _, err := s.db.ExecContext(ctx, query, agentID); err != nil {
		return fmt.Errorf("failed to increment agent jobs_created: %w", err)
	}

	return nil
}

// ApplyCompletionCounters applies both sides of a completed job: the
// worker's completion count and earnings, the agent's completion
// count and spend.
func (s *Store) ApplyCompletionCounters(ctx context.Context, workerID string, earnedCents int64, agentID string, spentCents int64) error {
	workerQuery := `
		UPDATE worker_profiles
		SET jobs_completed = jobs_completed + 1,
		    total_earned_cents = total_earned_cents + $1
		WHERE worker_id = $2
	`
	if _, err := s.db.ExecContext(ctx, workerQuery, earnedCents, workerID); err != nil {
		return fmt.Errorf("failed to update worker completion counters: %w", err)
	}

	agentQuery := `
		UPDATE agent_profiles
		SET jobs_completed = jobs_completed + 1,
		    total_spent_cents = total_spent_cents + $1
		WHERE agent_id = $2
	`
	if _, err := s.db.ExecContext(ctx, agentQuery, spentCents, agentID); err != nil {
		return fmt.Errorf("failed to update agent completion counters: %w", err)
	}

	return nil
}

// AddWorkerEarnings credits compensation outside the normal
// completion path (in-progress cancellation payout).
func (s *Store) AddWorkerEarnings(ctx context.Context, workerID string, cents int64) error {
	query := `
		UPDATE worker_profiles
		SET total_earned_cents = total_earned_cents + $1
		WHERE worker_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, cents, workerID); err != nil {
		return fmt.Errorf("failed to add worker earnings: %w", err)
	}

	return nil
}

// GetWorkerRating returns the worker's current rating aggregate.
func (s *Store) GetWorkerRating(ctx context.Context, workerID string) (avg float64, count int, err error) {
	query := `SELECT rating_avg, rating_count FROM worker_profiles WHERE worker_id = $1`

	row := s.db.QueryRowContext(ctx, query, workerID)
	if err := row.Scan(&avg, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, domain.E(domain.KindNotFound, "worker not found")
		}
		return 0, 0, fmt.Errorf("failed to get worker rating: %w", err)
	}

	return avg, count, nil
}

// SetWorkerRating stores a recomputed rating aggregate. The running
// average itself is computed by the review service.
func (s *Store) SetWorkerRating(ctx context.Context, workerID string, avg float64, count int) error {
	query := `
		UPDATE worker_profiles
		SET rating_avg = $1,
		    rating_count = $2
		WHERE worker_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, avg, count, workerID); err != nil {
		return fmt.Errorf("failed to set worker rating: %w", err)
	}

	return nil
}
