package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskpin/taskpin-be/internal/api/auth"
	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/dto"
	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
)

func (h *JobHandler) agent(c *gin.Context) (*auth.AgentIdentity, bool) {
	identity, ok := auth.AgentFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    string(domain.KindUnauthenticated),
				"message": "agent authentication is required",
			},
		})
		return nil, false
	}
	return identity, true
}

// CreateJob handles POST /api/v1/agent/jobs
// Funds the escrow hold and posts the job to the available pool.
func (h *JobHandler) CreateJob(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body: "+err.Error())
		return
	}

	job, err := h.lifecycle.Create(c.Request.Context(), agent.ID, agent.Key, lifecycle.CreateJobInput{
		Title:                req.Title,
		Description:          req.Description,
		Category:             req.Category,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		Address:              req.Address,
		RadiusMeters:         req.RadiusMeters,
		RequiredTrustLevel:   domain.TrustLevel(req.RequiredTrustLevel),
		RequiredDeliverables: req.RequiredDeliverables,
		PaymentAmountCents:   req.PaymentAmountCents,
		Currency:             req.Currency,
		ExpiresAt:            req.ExpiresAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromJob(job))
}

// ListAgentJobs handles GET /api/v1/agent/jobs
// Lists the calling agent's jobs with an optional status filter.
func (h *JobHandler) ListAgentJobs(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	var req dto.ListAgentJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondValidation(c, "invalid query parameters: "+err.Error())
		return
	}

	jobs, err := h.lifecycle.ListByAgent(c.Request.Context(), agent.ID, domain.JobStatus(req.Status), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]dto.JobDTO, 0, len(jobs))
	for i := range jobs {
		out = append(out, dto.FromJob(&jobs[i]))
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// GetAgentJob handles GET /api/v1/agent/jobs/:job_id
func (h *JobHandler) GetAgentJob(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.GetForAgent(c.Request.Context(), agent.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// ApproveJob handles POST /api/v1/agent/jobs/:job_id/approve
// Settles a submitted job toward the worker, optionally with a tip.
func (h *JobHandler) ApproveJob(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	jobID := c.Param("job_id")

	var req dto.ApproveJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "invalid request body: "+err.Error())
			return
		}
	}

	job, err := h.lifecycle.Approve(c.Request.Context(), agent.ID, jobID, req.TipAmountCents)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("Approve handled",
		slog.String("job_id", jobID),
		slog.String("agent_id", agent.ID),
	)

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// RejectJob handles POST /api/v1/agent/jobs/:job_id/reject
// Sends a submitted job back, keeping the worker assigned or
// releasing the job to the pool.
func (h *JobHandler) RejectJob(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	var req dto.RejectJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "rejection reason is required")
		return
	}

	job, err := h.lifecycle.Reject(c.Request.Context(), agent.ID, c.Param("job_id"), req.KeepAssigned, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// CancelJob handles POST /api/v1/agent/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Cancel(c.Request.Context(), agent.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// ListAgentDeliverables handles GET /api/v1/agent/jobs/:job_id/deliverables
func (h *JobHandler) ListAgentDeliverables(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	deliverables, err := h.lifecycle.ListDeliverablesForAgent(c.Request.Context(), agent.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]dto.DeliverableDTO, 0, len(deliverables))
	for i := range deliverables {
		out = append(out, dto.FromDeliverable(&deliverables[i]))
	}

	c.JSON(http.StatusOK, dto.ListDeliverablesResponse{Deliverables: out})
}

// CreateReview handles POST /api/v1/agent/jobs/:job_id/review
// Rates a completed job and folds the rating into the worker's
// running average.
func (h *JobHandler) CreateReview(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "rating is required")
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), agent.ID, c.Param("job_id"), req.Rating, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromReview(review))
}
