package handler

import (
	"log/slog"

	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
	"github.com/taskpin/taskpin-be/internal/api/messaging"
	"github.com/taskpin/taskpin-be/internal/api/reviews"
	"github.com/taskpin/taskpin-be/internal/hub"
	"github.com/taskpin/taskpin-be/shared/postgresql"
	"github.com/taskpin/taskpin-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Lifecycle    *lifecycle.Service
	Messaging    *messaging.Service
	Reviews      *reviews.Service
	Hub          *hub.Hub
}

// JobHandler handles job lifecycle HTTP requests for both sides of
// the marketplace.
type JobHandler struct {
	logger    *slog.Logger
	lifecycle *lifecycle.Service
	messaging *messaging.Service
	reviews   *reviews.Service
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		lifecycle: deps.Lifecycle,
		messaging: deps.Messaging,
		reviews:   deps.Reviews,
	}
}
