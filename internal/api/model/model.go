package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

// Job is one unit of requested real-world work. Money columns are
// integer cents; the row is never deleted, terminal jobs are retained
// for audit and reputation history.
type Job struct {
	ID                   string            `db:"job_id"`
	AgentID              string            `db:"agent_id"`
	Title                string            `db:"title"`
	Description          string            `db:"description"`
	Category             string            `db:"category"`
	Latitude             float64           `db:"latitude"`
	Longitude            float64           `db:"longitude"`
	Address              string            `db:"address"`
	RadiusMeters         float64           `db:"radius_meters"`
	RequiredTrustLevel   domain.TrustLevel `db:"required_trust_level"`
	RequiredDeliverables pq.StringArray    `db:"required_deliverables"`
	PaymentAmountCents   int64             `db:"payment_amount_cents"`
	Currency             string            `db:"currency"`
	EscrowHoldID         sql.NullString    `db:"escrow_hold_id"`
	Status               domain.JobStatus  `db:"status"`
	WorkerID             sql.NullString    `db:"worker_id"`
	AssignedAt           sql.NullTime      `db:"assigned_at"`
	StartedAt            sql.NullTime      `db:"started_at"`
	SubmittedAt          sql.NullTime      `db:"submitted_at"`
	CompletedAt          sql.NullTime      `db:"completed_at"`
	ExpiresAt            time.Time         `db:"expires_at"`
	RejectionCount       int               `db:"rejection_count"`
	LastRejectionReason  sql.NullString    `db:"last_rejection_reason"`
	CreatedAt            time.Time         `db:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at"`
}

// AvailableJob is a Job row joined with the distance from the
// searching worker's coordinates, when coordinates were supplied.
type AvailableJob struct {
	Job
	DistanceMeters float64 `db:"-"`
}

// Deliverable is a worker-submitted artifact tied to one job.
type Deliverable struct {
	ID         string       `db:"deliverable_id"`
	JobID      string       `db:"job_id"`
	WorkerID   string       `db:"worker_id"`
	Kind       string       `db:"kind"`
	StorageKey string       `db:"storage_key"`
	SizeBytes  int64        `db:"size_bytes"`
	MediaType  string       `db:"media_type"`
	Caption    string       `db:"caption"`
	CaptureLat float64      `db:"capture_lat"`
	CaptureLng float64      `db:"capture_lng"`
	CapturedAt sql.NullTime `db:"captured_at"`
	Verified   bool         `db:"verified"`
	CreatedAt  time.Time    `db:"created_at"`
}

// Transaction is an immutable ledger entry on a user's balance.
// Rows are append-only and never mutated after status is terminal.
type Transaction struct {
	ID          string                 `db:"transaction_id"`
	UserID      string                 `db:"user_id"`
	JobID       sql.NullString         `db:"job_id"`
	Type        domain.TransactionType `db:"type"`
	AmountCents int64                  `db:"amount_cents"`
	Currency    string                 `db:"currency"`
	Status      string                 `db:"status"`
	Description string                 `db:"description"`
	CreatedAt   time.Time              `db:"created_at"`
}

// Message is one entry in a job's two-party conversation. Messages
// persist across reject/reassignment cycles.
type Message struct {
	ID         string             `db:"message_id"`
	JobID      string             `db:"job_id"`
	SenderRole domain.SenderRole  `db:"sender_role"`
	Kind       domain.MessageKind `db:"kind"`
	Body       string             `db:"body"`
	Read       bool               `db:"read"`
	CreatedAt  time.Time          `db:"created_at"`
}

// Review is the agent's post-completion rating, at most one per job.
type Review struct {
	ID        string    `db:"review_id"`
	JobID     string    `db:"job_id"`
	AgentID   string    `db:"agent_id"`
	WorkerID  string    `db:"worker_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

// WorkerProfile carries the marketplace-facing state of a worker.
type WorkerProfile struct {
	ID               string            `db:"worker_id"`
	DisplayName      string            `db:"display_name"`
	TrustLevel       domain.TrustLevel `db:"trust_level"`
	JobsCompleted    int               `db:"jobs_completed"`
	TotalEarnedCents int64             `db:"total_earned_cents"`
	RatingAvg        float64           `db:"rating_avg"`
	RatingCount      int               `db:"rating_count"`
	CreatedAt        time.Time         `db:"created_at"`
}

// AgentProfile carries the marketplace-facing state of a job-creating
// agent.
type AgentProfile struct {
	ID              string    `db:"agent_id"`
	DisplayName     string    `db:"display_name"`
	JobsCreated     int       `db:"jobs_created"`
	JobsCompleted   int       `db:"jobs_completed"`
	TotalSpentCents int64     `db:"total_spent_cents"`
	CreatedAt       time.Time `db:"created_at"`
}
