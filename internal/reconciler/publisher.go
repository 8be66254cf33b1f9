package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taskpin/taskpin-be/shared/rabbitmq"
)

// Publisher enqueues escrow intents from the API service side.
type Publisher struct {
	rabbitClient *rabbitmq.Client
	logger       *slog.Logger
}

// NewPublisher creates an intent publisher.
func NewPublisher(rabbitClient *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{rabbitClient: rabbitClient, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, intent *Intent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	if err := p.rabbitClient.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish intent: %w", err)
	}

	p.logger.Info("Reconciliation intent queued",
		slog.String("op", intent.Op),
		slog.String("job_id", intent.JobID),
		slog.String("hold_id", intent.HoldID),
	)

	return nil
}

// EnqueueRelease queues a failed escrow release for retry.
func (p *Publisher) EnqueueRelease(ctx context.Context, jobID, holdID string) error {
	return p.publish(ctx, &Intent{Op: OpRelease, JobID: jobID, HoldID: holdID})
}

// EnqueueVoid queues a failed escrow void for retry.
func (p *Publisher) EnqueueVoid(ctx context.Context, jobID, holdID string, refundPercent int) error {
	return p.publish(ctx, &Intent{
		Op:            OpVoid,
		JobID:         jobID,
		HoldID:        holdID,
		RefundPercent: refundPercent,
	})
}
