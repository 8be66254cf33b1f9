package dto

import (
	"time"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

type CreateMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type ListMessagesRequest struct {
	Before string `form:"before"`
	Limit  int    `form:"limit"`
}

type MessageDTO struct {
	MessageID  string    `json:"message_id"`
	JobID      string    `json:"job_id"`
	SenderRole string    `json:"sender_role"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type MarkReadResponse struct {
	MarkedRead int64 `json:"marked_read"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type ReviewDTO struct {
	ReviewID  string    `json:"review_id"`
	JobID     string    `json:"job_id"`
	WorkerID  string    `json:"worker_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromMessage maps a message row to its API representation.
func FromMessage(m *model.Message) MessageDTO {
	return MessageDTO{
		MessageID:  m.ID,
		JobID:      m.JobID,
		SenderRole: string(m.SenderRole),
		Kind:       string(m.Kind),
		Body:       m.Body,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

// FromReview maps a review row to its API representation.
func FromReview(r *model.Review) ReviewDTO {
	return ReviewDTO{
		ReviewID:  r.ID,
		JobID:     r.JobID,
		WorkerID:  r.WorkerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
