package hub

import (
	"time"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

// Inbound frame kinds a client may send. Anything else earns an
// error frame, never a disconnect.
const (
	inboundPing           = "ping"
	inboundSubscribeJob   = "subscribe_job"
	inboundUnsubscribeJob = "unsubscribe_job"
)

// Outbound frame kinds.
const (
	frameSessionEstablished = "session_established"
	framePong               = "pong"
	frameServerPing         = "server_ping"
	frameError              = "error"
	frameNewJob             = "new_job"
	frameJobStatus          = "job_status"
	frameNewMessage         = "new_message"
)

type inboundFrame struct {
	Type  string `json:"type"`
	JobID string `json:"job_id,omitempty"`
}

type outboundFrame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Job       *jobEvent     `json:"job,omitempty"`
	Message   *messageEvent `json:"message,omitempty"`
}

type jobEvent struct {
	JobID              string    `json:"job_id"`
	Status             string    `json:"status"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	PaymentAmountCents int64     `json:"payment_amount_cents"`
	Currency           string    `json:"currency"`
	RequiredTrustLevel string    `json:"required_trust_level"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	ExpiresAt          time.Time `json:"expires_at"`
}

type messageEvent struct {
	JobID      string    `json:"job_id"`
	MessageID  string    `json:"message_id"`
	SenderRole string    `json:"sender_role"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func newJobEvent(job *model.Job) *jobEvent {
	return &jobEvent{
		JobID:              job.ID,
		Status:             string(job.Status),
		Title:              job.Title,
		Category:           job.Category,
		PaymentAmountCents: job.PaymentAmountCents,
		Currency:           job.Currency,
		RequiredTrustLevel: string(job.RequiredTrustLevel),
		Latitude:           job.Latitude,
		Longitude:          job.Longitude,
		ExpiresAt:          job.ExpiresAt,
	}
}

func newMessageEvent(jobID string, msg *model.Message) *messageEvent {
	return &messageEvent{
		JobID:      jobID,
		MessageID:  msg.ID,
		SenderRole: string(msg.SenderRole),
		Kind:       string(msg.Kind),
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}
