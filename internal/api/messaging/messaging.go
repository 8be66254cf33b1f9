// Package messaging manages the per-job conversation between the
// owning agent and the assigned worker. Messages persist across
// reject/reassignment cycles; notification delivery is fire-and-forget
// and never blocks an append.
package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// Store is the persistence surface the conversation service needs.
type Store interface {
	GetJobForAgent(ctx context.Context, jobID, agentID string) (*model.Job, error)
	GetJobForWorker(ctx context.Context, jobID, workerID string) (*model.Job, error)
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, jobID string, before *time.Time, limit int) ([]model.Message, error)
	MarkMessagesRead(ctx context.Context, jobID string, senderRole domain.SenderRole) (int64, error)
}

// Service is the conversation service.
type Service struct {
	store    Store
	notifier lifecycle.Notifier
	logger   *slog.Logger
}

// NewService creates the conversation service.
func NewService(store Store, notifier lifecycle.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// authorize resolves the job through the caller's ownership scope and
// returns it together with the counter-party's user id.
func (s *Service) authorize(ctx context.Context, role domain.SenderRole, userID, jobID string) (*model.Job, string, error) {
	var job *model.Job
	var err error

	switch role {
	case domain.RoleAgent:
		job, err = s.store.GetJobForAgent(ctx, jobID, userID)
	case domain.RoleWorker:
		job, err = s.store.GetJobForWorker(ctx, jobID, userID)
	default:
		return nil, "", domain.E(domain.KindValidation, "unknown sender role")
	}
	if err != nil {
		return nil, "", err
	}

	counterparty := job.AgentID
	if role == domain.RoleAgent {
		counterparty = job.WorkerID.String
	}

	return job, counterparty, nil
}

// Append adds a message to the job's conversation. The conversation
// only exists once a worker is assigned: an agent cannot message an
// empty pool entry.
func (s *Service) Append(ctx context.Context, role domain.SenderRole, userID, jobID, body string) (*model.Message, error) {
	if body == "" {
		return nil, domain.E(domain.KindValidation, "message body is required")
	}

	job, counterparty, err := s.authorize(ctx, role, userID, jobID)
	if err != nil {
		return nil, err
	}

	if !job.WorkerID.Valid {
		return nil, domain.ErrMessageNotFound
	}

	msg := &model.Message{
		ID:         uuid.New().String(),
		JobID:      jobID,
		SenderRole: role,
		Kind:       domain.MessageText,
		Body:       body,
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Debug("Message appended",
		slog.String("job_id", jobID),
		slog.String("sender_role", string(role)),
	)

	s.notifier.MessagePosted(jobID, msg, counterparty)

	return msg, nil
}

// List pages through the conversation, oldest first within the page.
// The before cursor points at the creation time of the oldest message
// already seen.
func (s *Service) List(ctx context.Context, role domain.SenderRole, userID, jobID string, before *time.Time, limit int) ([]model.Message, error) {
	if _, _, err := s.authorize(ctx, role, userID, jobID); err != nil {
		return nil, err
	}

	return s.store.ListMessages(ctx, jobID, before, limit)
}

// MarkRead marks the counter-party's messages as read. A caller can
// never mark their own messages.
func (s *Service) MarkRead(ctx context.Context, role domain.SenderRole, userID, jobID string) (int64, error) {
	if _, _, err := s.authorize(ctx, role, userID, jobID); err != nil {
		return 0, err
	}

	counterpartyRole := domain.RoleAgent
	if role == domain.RoleAgent {
		counterpartyRole = domain.RoleWorker
	}

	return s.store.MarkMessagesRead(ctx, jobID, counterpartyRole)
}
