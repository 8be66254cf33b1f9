package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
	"github.com/taskpin/taskpin-be/internal/observability"
	"github.com/taskpin/taskpin-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Ledger        lifecycle.Ledger
	Concurrency   int
	PrefetchCount int
	RetryDelay    time.Duration
	LedgerTimeout time.Duration
}

// Worker consumes the intent queue and replays escrow operations.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	ledger        lifecycle.Ledger
	concurrency   int
	prefetchCount int
	retryDelay    time.Duration
	ledgerTimeout time.Duration
	workerID      string
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		ledger:        cfg.Ledger,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		retryDelay:    cfg.RetryDelay,
		ledgerTimeout: cfg.LedgerTimeout,
		workerID:      fmt.Sprintf("reconciler-%s", uuid.New().String()[:8]),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes intents until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconciliation worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.rabbitClient.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	intents := make(chan *delivery)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i, intents)
	}

	w.dispatch(ctx, deliveries, intents)
	close(intents)
	w.wg.Wait()

	return nil
}

// Stop signals the worker loops to drain.
func (w *Worker) Stop() {
	w.logger.Info("Stopping reconciliation worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Reconciliation worker stopped")
}

type delivery struct {
	intent      *Intent
	deliveryTag uint64
}

// dispatch parses queue deliveries and hands valid intents to the
// pool. Malformed intents are dropped without requeue.
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, intents chan<- *delivery) {
	w.logger.Info("Intent dispatcher started", slog.String("worker_id", w.workerID))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Intent dispatcher stopped - context canceled")
			return
		case <-w.stopChan:
			w.logger.Info("Intent dispatcher stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			intent, err := parseIntent(d.Body)
			if err != nil {
				w.logger.Error("Dropping malformed intent",
					slog.String("error", err.Error()),
					slog.String("body", string(d.Body)),
				)
				observability.ReconcileIntents.WithLabelValues("unknown", "malformed").Inc()
				if nackErr := d.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed intent", slog.Any("error", nackErr))
				}
				continue
			}

			select {
			case intents <- &delivery{intent: intent, deliveryTag: d.DeliveryTag}:
			case <-ctx.Done():
				// Requeue so another consumer picks it up.
				if nackErr := d.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK intent on shutdown", slog.Any("error", nackErr))
				}
				return
			}
		}
	}
}

// workerLoop replays intents against the ledger and ACKs or NACKs
// based on the outcome. A still-unavailable ledger requeues after a
// delay; any other failure drops the intent.
func (w *Worker) workerLoop(ctx context.Context, workerNum int, intents <-chan *delivery) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Reconciler goroutine started", slog.String("worker_name", workerName))

	for d := range intents {
		err := w.process(ctx, d.intent)

		channel := w.rabbitClient.GetChannel()
		if channel == nil {
			w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
				slog.String("worker_name", workerName),
				slog.String("job_id", d.intent.JobID),
			)
			continue
		}

		if err == nil {
			observability.ReconcileIntents.WithLabelValues(d.intent.Op, "ok").Inc()
			if ackErr := channel.Ack(d.deliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK intent", slog.Any("error", ackErr))
			}
			continue
		}

		requeue := domain.IsKind(err, domain.KindUpstreamUnavailable)
		outcome := "dropped"
		if requeue {
			outcome = "requeued"
		}
		observability.ReconcileIntents.WithLabelValues(d.intent.Op, outcome).Inc()

		w.logger.Error("Intent replay failed",
			slog.String("worker_name", workerName),
			slog.String("op", d.intent.Op),
			slog.String("job_id", d.intent.JobID),
			slog.Bool("requeue", requeue),
			slog.Any("error", err),
		)

		if requeue {
			// Pace the retry so a down ledger is not hammered.
			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
			}
		}

		if nackErr := channel.Nack(d.deliveryTag, false, requeue); nackErr != nil {
			w.logger.Error("Failed to NACK intent", slog.Any("error", nackErr))
		}
	}

	w.logger.Info("Reconciler goroutine stopped", slog.String("worker_name", workerName))
}

// process replays one intent with a bounded ledger call.
func (w *Worker) process(ctx context.Context, intent *Intent) error {
	callCtx, cancel := context.WithTimeout(ctx, w.ledgerTimeout)
	defer cancel()

	w.logger.Info("Replaying escrow intent",
		slog.String("op", intent.Op),
		slog.String("job_id", intent.JobID),
		slog.String("hold_id", intent.HoldID),
	)

	switch intent.Op {
	case OpRelease:
		return w.ledger.Release(callCtx, intent.HoldID)
	case OpVoid:
		return w.ledger.Void(callCtx, intent.HoldID, intent.RefundPercent)
	default:
		return fmt.Errorf("unknown intent op %q", intent.Op)
	}
}
