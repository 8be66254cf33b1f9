package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// Approve settles a submitted job (submitted → completed). The escrow
// hold is released best-effort; payment and counters are recorded
// locally regardless, so a degraded ledger never wedges the job.
func (s *Service) Approve(ctx context.Context, agentID, jobID string, tipCents int64) (job *model.Job, err error) {
	defer func() { transitionMetric("approve", err) }()

	if tipCents < 0 {
		return nil, domain.E(domain.KindValidation, "tip_amount_cents must not be negative")
	}

	job, err = s.store.GetJobForAgent(ctx, jobID, agentID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusSubmitted {
		return nil, domain.ErrJobConflict
	}

	if err = s.store.MarkCompleted(ctx, jobID, agentID); err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusCompleted
	job.CompletedAt = nullTimeNow()

	s.releaseEscrow(ctx, job)

	workerID := job.WorkerID.String
	now := time.Now()

	payment := &model.Transaction{
		ID:          uuid.New().String(),
		UserID:      workerID,
		JobID:       nullString(jobID),
		Type:        domain.TransactionJobPayment,
		AmountCents: job.PaymentAmountCents,
		Currency:    job.Currency,
		Status:      "completed",
		Description: fmt.Sprintf("Payment for job %q", job.Title),
		CreatedAt:   now,
	}
	if err = s.store.CreateTransaction(ctx, payment); err != nil {
		return nil, err
	}

	if tipCents > 0 {
		bonus := &model.Transaction{
			ID:          uuid.New().String(),
			UserID:      workerID,
			JobID:       nullString(jobID),
			Type:        domain.TransactionBonus,
			AmountCents: tipCents,
			Currency:    job.Currency,
			Status:      "completed",
			Description: fmt.Sprintf("Tip for job %q", job.Title),
			CreatedAt:   now,
		}
		if err = s.store.CreateTransaction(ctx, bonus); err != nil {
			return nil, err
		}
	}

	earned := job.PaymentAmountCents + tipCents
	if err = s.store.ApplyCompletionCounters(ctx, workerID, earned, agentID, earned); err != nil {
		return nil, err
	}

	s.logger.Info("Job approved",
		slog.String("job_id", jobID),
		slog.String("agent_id", agentID),
		slog.String("worker_id", workerID),
		slog.Int64("earned_cents", earned),
	)

	s.notifier.JobStatusChanged(job, workerID)

	return job, nil
}

// Reject sends a submitted job back. With keepAssigned the worker
// stays on the job (submitted → in_progress); without it the job
// returns to the pool (submitted → available), the worker is
// unassigned, and their deliverables are removed. Either way the
// worker is told why via a system message, appended before the
// unassignment becomes visible.
func (s *Service) Reject(ctx context.Context, agentID, jobID string, keepAssigned bool, reason string) (job *model.Job, err error) {
	defer func() { transitionMetric("reject", err) }()

	if reason == "" {
		return nil, domain.E(domain.KindValidation, "rejection reason is required")
	}

	job, err = s.store.GetJobForAgent(ctx, jobID, agentID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusSubmitted {
		return nil, domain.ErrJobConflict
	}

	workerID := job.WorkerID.String

	notice := &model.Message{
		ID:         uuid.New().String(),
		JobID:      jobID,
		SenderRole: domain.RoleAgent,
		Kind:       domain.MessageSystem,
		Body:       fmt.Sprintf("Submission rejected: %s", reason),
		CreatedAt:  time.Now(),
	}
	if err = s.store.CreateMessage(ctx, notice); err != nil {
		return nil, err
	}
	s.notifier.MessagePosted(jobID, notice, workerID)

	if keepAssigned {
		if err = s.store.MarkRejectedKeepAssigned(ctx, jobID, agentID, reason); err != nil {
			return nil, err
		}

		job.Status = domain.JobStatusInProgress
		job.SubmittedAt = nullTimeClear()
		job.RejectionCount++

		s.logger.Info("Job rejected, worker kept assigned",
			slog.String("job_id", jobID),
			slog.String("worker_id", workerID),
		)

		s.notifier.JobStatusChanged(job, workerID)

		return job, nil
	}

	if err = s.store.MarkRejectedReleased(ctx, jobID, agentID, reason); err != nil {
		return nil, err
	}

	// The worker loses credit for prior work: remove the rows, then
	// the blobs. Blob cleanup is best-effort and never blocks the
	// transition.
	keys, err := s.store.DeleteDeliverablesByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to delete deliverable object",
				slog.String("job_id", jobID),
				slog.String("storage_key", key),
				slog.Any("error", delErr),
			)
		}
	}

	job.Status = domain.JobStatusAvailable
	job.WorkerID = nullStringClear()
	job.AssignedAt = nullTimeClear()
	job.StartedAt = nullTimeClear()
	job.SubmittedAt = nullTimeClear()
	job.RejectionCount++

	s.logger.Info("Job rejected and released to pool",
		slog.String("job_id", jobID),
		slog.String("previous_worker_id", workerID),
		slog.Int("deliverables_removed", len(keys)),
	)

	s.notifier.JobStatusChanged(job, workerID)
	s.notifier.JobPosted(job, workerID)

	return job, nil
}

// Cancel withdraws a job (→ cancelled). Before any work has started
// the agent is refunded in full; cancelling in-progress work refunds
// the agent partially and compensates the worker with the withheld
// share. Submitted jobs cannot be cancelled: they must be approved or
// rejected first.
func (s *Service) Cancel(ctx context.Context, agentID, jobID string) (job *model.Job, err error) {
	defer func() { transitionMetric("cancel", err) }()

	job, err = s.store.GetJobForAgent(ctx, jobID, agentID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case domain.JobStatusSubmitted:
		return nil, domain.E(domain.KindInvalidTransition, "submitted jobs must be approved or rejected, not cancelled")
	case domain.JobStatusCompleted, domain.JobStatusCancelled:
		return nil, domain.E(domain.KindInvalidTransition, "job is already finalized")
	}

	priorStatus := job.Status

	if err = s.store.MarkCancelled(ctx, jobID, agentID, priorStatus); err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusCancelled

	workerID := job.WorkerID.String

	if priorStatus == domain.JobStatusInProgress {
		compCents := job.PaymentAmountCents * int64(s.cfg.CancelCompensationPercent) / 100
		refundPercent := 100 - s.cfg.CancelCompensationPercent

		s.voidEscrow(ctx, job, refundPercent)

		compensation := &model.Transaction{
			ID:          uuid.New().String(),
			UserID:      workerID,
			JobID:       nullString(jobID),
			Type:        domain.TransactionJobPayment,
			AmountCents: compCents,
			Currency:    job.Currency,
			Status:      "completed",
			Description: fmt.Sprintf("Compensation for cancelled job %q", job.Title),
			CreatedAt:   time.Now(),
		}
		if err = s.store.CreateTransaction(ctx, compensation); err != nil {
			return nil, err
		}

		if err = s.store.AddWorkerEarnings(ctx, workerID, compCents); err != nil {
			return nil, err
		}

		s.logger.Info("In-progress job cancelled with compensation",
			slog.String("job_id", jobID),
			slog.String("worker_id", workerID),
			slog.Int64("compensation_cents", compCents),
			slog.Int("refund_percent", refundPercent),
		)
	} else {
		s.voidEscrow(ctx, job, 100)

		s.logger.Info("Job cancelled with full refund",
			slog.String("job_id", jobID),
			slog.String("prior_status", string(priorStatus)),
		)
	}

	s.notifier.JobStatusChanged(job, workerID)

	return job, nil
}

// ListByAgent returns the agent's jobs with an optional status filter.
func (s *Service) ListByAgent(ctx context.Context, agentID string, status domain.JobStatus, limit, offset int) ([]model.Job, error) {
	if status != "" && !status.Valid() {
		return nil, domain.E(domain.KindValidation, "unknown status filter")
	}
	return s.store.ListJobsByAgent(ctx, agentID, status, limit, offset)
}

// GetForAgent returns a job visible to its owning agent.
func (s *Service) GetForAgent(ctx context.Context, agentID, jobID string) (*model.Job, error) {
	return s.store.GetJobForAgent(ctx, jobID, agentID)
}

// ListDeliverablesForAgent lists a job's deliverables for its owner.
func (s *Service) ListDeliverablesForAgent(ctx context.Context, agentID, jobID string) ([]model.Deliverable, error) {
	if _, err := s.store.GetJobForAgent(ctx, jobID, agentID); err != nil {
		return nil, err
	}
	return s.store.ListDeliverablesByJob(ctx, jobID)
}
