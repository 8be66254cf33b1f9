package dto

import (
	"time"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

type CreateJobRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	Category             string    `json:"category" binding:"required"`
	Latitude             float64   `json:"latitude" binding:"required"`
	Longitude            float64   `json:"longitude" binding:"required"`
	Address              string    `json:"address"`
	RadiusMeters         float64   `json:"radius_meters" binding:"required"`
	RequiredTrustLevel   string    `json:"required_trust_level" binding:"required"`
	RequiredDeliverables []string  `json:"required_deliverables" binding:"required"`
	PaymentAmountCents   int64     `json:"payment_amount_cents" binding:"required"`
	Currency             string    `json:"currency" binding:"required"`
	ExpiresAt            time.Time `json:"expires_at" binding:"required"`
}

type ListAgentJobsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type AvailableJobsRequest struct {
	Latitude     *float64 `form:"lat"`
	Longitude    *float64 `form:"lng"`
	RadiusMeters float64  `form:"radius_meters"`
	Limit        int      `form:"limit"`
}

type ApproveJobRequest struct {
	TipAmountCents int64 `json:"tip_amount_cents"`
}

type RejectJobRequest struct {
	Reason       string `json:"reason" binding:"required"`
	KeepAssigned bool   `json:"keep_assigned"`
}

type JobDTO struct {
	JobID                string     `json:"job_id"`
	AgentID              string     `json:"agent_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	Latitude             float64    `json:"latitude"`
	Longitude            float64    `json:"longitude"`
	Address              string     `json:"address,omitempty"`
	RadiusMeters         float64    `json:"radius_meters"`
	RequiredTrustLevel   string     `json:"required_trust_level"`
	RequiredDeliverables []string   `json:"required_deliverables"`
	PaymentAmountCents   int64      `json:"payment_amount_cents"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	WorkerID             *string    `json:"worker_id,omitempty"`
	AssignedAt           *time.Time `json:"assigned_at,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	SubmittedAt          *time.Time `json:"submitted_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	ExpiresAt            time.Time  `json:"expires_at"`
	RejectionCount       int        `json:"rejection_count"`
	LastRejectionReason  *string    `json:"last_rejection_reason,omitempty"`
	DistanceMeters       *float64   `json:"distance_meters,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

type DeliverableDTO struct {
	DeliverableID string     `json:"deliverable_id"`
	JobID         string     `json:"job_id"`
	Kind          string     `json:"kind"`
	SizeBytes     int64      `json:"size_bytes"`
	MediaType     string     `json:"media_type,omitempty"`
	Caption       string     `json:"caption,omitempty"`
	CaptureLat    float64    `json:"capture_lat"`
	CaptureLng    float64    `json:"capture_lng"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"`
	Verified      bool       `json:"verified"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ListDeliverablesResponse struct {
	Deliverables []DeliverableDTO `json:"deliverables"`
}

// FromJob maps a job row to its API representation.
func FromJob(job *model.Job) JobDTO {
	out := JobDTO{
		JobID:                job.ID,
		AgentID:              job.AgentID,
		Title:                job.Title,
		Description:          job.Description,
		Category:             job.Category,
		Latitude:             job.Latitude,
		Longitude:            job.Longitude,
		Address:              job.Address,
		RadiusMeters:         job.RadiusMeters,
		RequiredTrustLevel:   string(job.RequiredTrustLevel),
		RequiredDeliverables: job.RequiredDeliverables,
		PaymentAmountCents:   job.PaymentAmountCents,
		Currency:             job.Currency,
		Status:               string(job.Status),
		ExpiresAt:            job.ExpiresAt,
		RejectionCount:       job.RejectionCount,
		CreatedAt:            job.CreatedAt,
		UpdatedAt:            job.UpdatedAt,
	}

	if job.WorkerID.Valid {
		out.WorkerID = &job.WorkerID.String
	}
	if job.LastRejectionReason.Valid {
		out.LastRejectionReason = &job.LastRejectionReason.String
	}
	if job.AssignedAt.Valid {
		out.AssignedAt = &job.AssignedAt.Time
	}
	if job.StartedAt.Valid {
		out.StartedAt = &job.StartedAt.Time
	}
	if job.SubmittedAt.Valid {
		out.SubmittedAt = &job.SubmittedAt.Time
	}
	if job.CompletedAt.Valid {
		out.CompletedAt = &job.CompletedAt.Time
	}

	return out
}

// FromAvailableJob maps a pool search hit, carrying the computed
// distance when the search had coordinates.
func FromAvailableJob(job *model.AvailableJob, withDistance bool) JobDTO {
	out := FromJob(&job.Job)
	if withDistance {
		d := job.DistanceMeters
		out.DistanceMeters = &d
	}
	return out
}

// FromDeliverable maps a deliverable row to its API representation.
func FromDeliverable(d *model.Deliverable) DeliverableDTO {
	out := DeliverableDTO{
		DeliverableID: d.ID,
		JobID:         d.JobID,
		Kind:          d.Kind,
		SizeBytes:     d.SizeBytes,
		MediaType:     d.MediaType,
		Caption:       d.Caption,
		CaptureLat:    d.CaptureLat,
		CaptureLng:    d.CaptureLng,
		Verified:      d.Verified,
		CreatedAt:     d.CreatedAt,
	}
	if d.CapturedAt.Valid {
		out.CapturedAt = &d.CapturedAt.Time
	}
	return out
}
