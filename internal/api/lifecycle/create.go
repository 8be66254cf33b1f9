package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
	"github.com/taskpin/taskpin-be/internal/observability"
	"github.com/taskpin/taskpin-be/shared/ledger"
)

// CreateJobInput carries the validated fields for a new job.
type CreateJobInput struct {
	Title                string
	Description          string
	Category             string
	Latitude             float64
	Longitude            float64
	Address              string
	RadiusMeters         float64
	RequiredTrustLevel   domain.TrustLevel
	RequiredDeliverables []string
	PaymentAmountCents   int64
	Currency             string
	ExpiresAt            time.Time
}

func (s *Service) validateCreate(input *CreateJobInput) error {
	switch {
	case input.Title == "":
		return domain.E(domain.KindValidation, "title is required")
	case input.Category == "":
		return domain.E(domain.KindValidation, "category is required")
	case input.Latitude < -90 || input.Latitude > 90:
		return domain.E(domain.KindValidation, "latitude must be between -90 and 90")
	case input.Longitude < -180 || input.Longitude > 180:
		return domain.E(domain.KindValidation, "longitude must be between -180 and 180")
	case input.RadiusMeters <= 0:
		return domain.E(domain.KindValidation, "radius_meters must be positive")
	case !input.RequiredTrustLevel.Valid():
		return domain.E(domain.KindValidation, "required_trust_level must be basic, verified, or kyc_gold")
	case len(input.RequiredDeliverables) == 0:
		return domain.E(domain.KindValidation, "at least one required deliverable kind is needed")
	case input.PaymentAmountCents < s.cfg.MinPaymentCents:
		return domain.E(domain.KindValidation,
			fmt.Sprintf("payment_amount_cents must be at least %d", s.cfg.MinPaymentCents))
	case len(input.Currency) != 3:
		return domain.E(domain.KindValidation, "currency must be a 3-letter code")
	case !input.ExpiresAt.After(time.Now()):
		return domain.E(domain.KindValidation, "expires_at must be in the future")
	}

	for _, kind := range input.RequiredDeliverables {
		if kind == "" {
			return domain.E(domain.KindValidation, "deliverable kinds must be non-empty")
		}
	}

	return nil
}

// Create funds the escrow hold and inserts the job in the available
// pool. A hold failure is a hard failure: no job exists without
// committed funds.
func (s *Service) Create(ctx context.Context, agentID, agentKey string, input CreateJobInput) (job *model.Job, err error) {
	defer func() { transitionMetric("create", err) }()

	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()

	holdID, err := s.ledger.Hold(ctx, ledger.HoldRequest{
		AmountCents: input.PaymentAmountCents,
		Currency:    input.Currency,
		Reference:   jobID,
		AgentKey:    agentKey,
	})
	if err != nil {
		observability.LedgerRequests.WithLabelValues("hold", "error").Inc()
		return nil, err
	}
	observability.LedgerRequests.WithLabelValues("hold", "ok").Inc()

	now := time.Now()
	job = &model.Job{
		ID:                   jobID,
		AgentID:              agentID,
		Title:                input.Title,
		Description:          input.Description,
		Category:             input.Category,
		Latitude:             input.Latitude,
		Longitude:            input.Longitude,
		Address:              input.Address,
		RadiusMeters:         input.RadiusMeters,
		RequiredTrustLevel:   input.RequiredTrustLevel,
		RequiredDeliverables: input.RequiredDeliverables,
		PaymentAmountCents:   input.PaymentAmountCents,
		Currency:             input.Currency,
		EscrowHoldID:         sql.NullString{String: holdID, Valid: true},
		Status:               domain.JobStatusAvailable,
		ExpiresAt:            input.ExpiresAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		// The hold is already funded; give the money back rather
		// than stranding it against a job that never existed.
		s.voidEscrow(ctx, job, 100)
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := s.store.IncrementAgentJobsCreated(ctx, agentID); err != nil {
		s.logger.Warn("Failed to increment agent jobs_created",
			slog.String("agent_id", agentID),
			slog.Any("error", err),
		)
	}

	s.logger.Info("Job created",
		slog.String("job_id", jobID),
		slog.String("agent_id", agentID),
		slog.Int64("payment_amount_cents", input.PaymentAmountCents),
		slog.String("hold_id", holdID),
	)

	s.notifier.JobPosted(job, agentID)

	return job, nil
}
