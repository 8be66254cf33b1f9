package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/dto"
)

func (h *JobHandler) postMessage(c *gin.Context, role domain.SenderRole, userID string) {
	var req dto.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "message body is required")
		return
	}

	msg, err := h.messaging.Append(c.Request.Context(), role, userID, c.Param("job_id"), req.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromMessage(msg))
}

func (h *JobHandler) listMessages(c *gin.Context, role domain.SenderRole, userID string) {
	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondValidation(c, "invalid query parameters: "+err.Error())
		return
	}

	before, err := DecodeMessageCursor(req.Before)
	if err != nil {
		respondValidation(c, "invalid cursor")
		return
	}

	messages, err := h.messaging.List(c.Request.Context(), role, userID, c.Param("job_id"), before, req.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]dto.MessageDTO, 0, len(messages))
	for i := range messages {
		out = append(out, dto.FromMessage(&messages[i]))
	}

	resp := dto.ListMessagesResponse{Messages: out}
	if len(messages) > 0 {
		// The page is chronological; the next page ends before its
		// oldest entry.
		resp.NextCursor = EncodeMessageCursor(messages[0].CreatedAt, messages[0].ID)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) markMessagesRead(c *gin.Context, role domain.SenderRole, userID string) {
	marked, err := h.messaging.MarkRead(c.Request.Context(), role, userID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{MarkedRead: marked})
}

// PostAgentMessage handles POST /api/v1/agent/jobs/:job_id/messages
func (h *JobHandler) PostAgentMessage(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}
	h.postMessage(c, domain.RoleAgent, agent.ID)
}

// ListAgentMessages handles GET /api/v1/agent/jobs/:job_id/messages
func (h *JobHandler) ListAgentMessages(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}
	h.listMessages(c, domain.RoleAgent, agent.ID)
}

// MarkAgentMessagesRead handles POST /api/v1/agent/jobs/:job_id/messages/read
func (h *JobHandler) MarkAgentMessagesRead(c *gin.Context) {
	agent, ok := h.agent(c)
	if !ok {
		return
	}
	h.markMessagesRead(c, domain.RoleAgent, agent.ID)
}

// PostWorkerMessage handles POST /api/v1/worker/jobs/:job_id/messages
func (h *JobHandler) PostWorkerMessage(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}
	h.postMessage(c, domain.RoleWorker, worker.ID)
}

// ListWorkerMessages handles GET /api/v1/worker/jobs/:job_id/messages
func (h *JobHandler) ListWorkerMessages(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}
	h.listMessages(c, domain.RoleWorker, worker.ID)
}

// MarkWorkerMessagesRead handles POST /api/v1/worker/jobs/:job_id/messages/read
func (h *JobHandler) MarkWorkerMessagesRead(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}
	h.markMessagesRead(c, domain.RoleWorker, worker.ID)
}
