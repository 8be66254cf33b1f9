// Package lifecycle implements the job state machine: every
// transition a job can take, the authorization guarding it, and the
// escrow, transaction, messaging, and notification side effects each
// one carries. All job mutation in the system funnels through this
// package.
package lifecycle

import (
	"context"
	"log/slog"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
	"github.com/taskpin/taskpin-be/internal/api/storage"
	"github.com/taskpin/taskpin-be/internal/observability"
	"github.com/taskpin/taskpin-be/shared/ledger"
	"github.com/taskpin/taskpin-be/shared/objectstore"
)

// Store is the persistence surface the state machine drives. The
// sqlx-backed storage.Store satisfies it; tests use an in-memory fake.
type Store interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	GetJobForAgent(ctx context.Context, jobID, agentID string) (*model.Job, error)
	GetJobForWorker(ctx context.Context, jobID, workerID string) (*model.Job, error)
	ListJobsByAgent(ctx context.Context, agentID string, status domain.JobStatus, limit, offset int) ([]model.Job, error)
	ListAvailableJobs(ctx context.Context, filter storage.AvailableJobsFilter) ([]model.AvailableJob, error)

	MarkAssigned(ctx context.Context, jobID, workerID string) error
	MarkStarted(ctx context.Context, jobID, workerID string) error
	MarkSubmitted(ctx context.Context, jobID, workerID string) error
	MarkCompleted(ctx context.Context, jobID, agentID string) error
	MarkRejectedKeepAssigned(ctx context.Context, jobID, agentID, reason string) error
	MarkRejectedReleased(ctx context.Context, jobID, agentID, reason string) error
	MarkCancelled(ctx context.Context, jobID, agentID string, expect domain.JobStatus) error

	CreateDeliverable(ctx context.Context, d *model.Deliverable) error
	ListDeliverablesByJob(ctx context.Context, jobID string) ([]model.Deliverable, error)
	CountDeliverablesByJob(ctx context.Context, jobID string) (int, error)
	DeleteDeliverablesByJob(ctx context.Context, jobID string) ([]string, error)

	CreateTransaction(ctx context.Context, t *model.Transaction) error
	CreateMessage(ctx context.Context, m *model.Message) error

	IncrementAgentJobsCreated(ctx context.Context, agentID string) error
	ApplyCompletionCounters(ctx context.Context, workerID string, earnedCents int64, agentID string, spentCents int64) error
	AddWorkerEarnings(ctx context.Context, workerID string, cents int64) error
}

// Ledger is the escrow bridge contract.
type Ledger interface {
	Hold(ctx context.Context, req ledger.HoldRequest) (string, error)
	Release(ctx context.Context, holdID string) error
	Void(ctx context.Context, holdID string, refundPercent int) error
}

// Notifier fans job and message events out to connected clients.
// Implementations must not block the calling transition.
type Notifier interface {
	// JobPosted announces a job joining the available pool to every
	// session except excludeUserID's.
	JobPosted(job *model.Job, excludeUserID string)
	// JobStatusChanged announces a transition. Empty toUserID means
	// every interested session; otherwise only that user's sessions.
	JobStatusChanged(job *model.Job, toUserID string)
	// MessagePosted delivers a new conversation message to exactly
	// the recipient.
	MessagePosted(jobID string, msg *model.Message, toUserID string)
}

// ReconcileQueue accepts escrow operations that failed best-effort
// and must be retried out-of-band.
type ReconcileQueue interface {
	EnqueueRelease(ctx context.Context, jobID, holdID string) error
	EnqueueVoid(ctx context.Context, jobID, holdID string, refundPercent int) error
}

// Config holds the state machine's business settings.
type Config struct {
	MinPaymentCents int64
	// CancelCompensationPercent is the share of the payment a worker
	// receives when an agent cancels an in-progress job. The same
	// share is withheld from the agent's refund.
	CancelCompensationPercent int
}

// Service is the job state machine.
type Service struct {
	store    Store
	ledger   Ledger
	notifier Notifier
	queue    ReconcileQueue
	objects  objectstore.Store
	cfg      Config
	logger   *slog.Logger
}

// NewService wires the state machine's collaborators.
func NewService(store Store, ledger Ledger, notifier Notifier, queue ReconcileQueue, objects objectstore.Store, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		queue:    queue,
		objects:  objects,
		cfg:      cfg,
		logger:   logger,
	}
}

// releaseEscrow settles a hold toward the worker. Failures never
// block the transition: the intent is queued for out-of-band retry
// and the job completes regardless.
func (s *Service) releaseEscrow(ctx context.Context, job *model.Job) {
	if !job.EscrowHoldID.Valid {
		return
	}
	holdID := job.EscrowHoldID.String

	if err := s.ledger.Release(ctx, holdID); err != nil {
		observability.LedgerRequests.WithLabelValues("release", "error").Inc()
		s.logger.Error("Escrow release failed, queueing for reconciliation",
			slog.String("job_id", job.ID),
			slog.String("hold_id", holdID),
			slog.Any("error", err),
		)
		if qErr := s.queue.EnqueueRelease(ctx, job.ID, holdID); qErr != nil {
			s.logger.Error("Failed to enqueue escrow release intent",
				slog.String("job_id", job.ID),
				slog.String("hold_id", holdID),
				slog.Any("error", qErr),
			)
		}
		return
	}

	observability.LedgerRequests.WithLabelValues("release", "ok").Inc()
}

// voidEscrow cancels a hold with a partial refund, best-effort like
// releaseEscrow.
func (s *Service) voidEscrow(ctx context.Context, job *model.Job, refundPercent int) {
	if !job.EscrowHoldID.Valid {
		return
	}
	holdID := job.EscrowHoldID.String

	if err := s.ledger.Void(ctx, holdID, refundPercent); err != nil {
		observability.LedgerRequests.WithLabelValues("void", "error").Inc()
		s.logger.Error("Escrow void failed, queueing for reconciliation",
			slog.String("job_id", job.ID),
			slog.String("hold_id", holdID),
			slog.Int("refund_percent", refundPercent),
			slog.Any("error", err),
		)
		if qErr := s.queue.EnqueueVoid(ctx, job.ID, holdID, refundPercent); qErr != nil {
			s.logger.Error("Failed to enqueue escrow void intent",
				slog.String("job_id", job.ID),
				slog.String("hold_id", holdID),
				slog.Any("error", qErr),
			)
		}
		return
	}

	observability.LedgerRequests.WithLabelValues("void", "ok").Inc()
}

func transitionMetric(transition string, err error) {
	switch {
	case err == nil:
		observability.JobTransitions.WithLabelValues(transition, "ok").Inc()
	case domain.KindOf(err) != "":
		observability.JobTransitions.WithLabelValues(transition, "rejected").Inc()
	default:
		observability.JobTransitions.WithLabelValues(transition, "error").Inc()
	}
}
