package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskpin/taskpin-be/internal/api/auth"
	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/dto"
	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
	"github.com/taskpin/taskpin-be/internal/api/storage"
)

// maxDeliverableBytes caps a single uploaded artifact.
const maxDeliverableBytes = 32 << 20

func (h *JobHandler) worker(c *gin.Context) (*auth.WorkerIdentity, bool) {
	identity, ok := auth.WorkerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    string(domain.KindUnauthenticated),
				"message": "worker authentication is required",
			},
		})
		return nil, false
	}
	return identity, true
}

// ListAvailableJobs handles GET /api/v1/worker/jobs
// Returns the open pool filtered by the caller's trust tier, nearest
// first when coordinates are supplied.
func (h *JobHandler) ListAvailableJobs(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	var req dto.AvailableJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondValidation(c, "invalid query parameters: "+err.Error())
		return
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondValidation(c, "lat and lng must be supplied together")
		return
	}

	filter := storage.AvailableJobsFilter{Limit: req.Limit}
	if req.Latitude != nil {
		if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
			respondValidation(c, "coordinates out of range")
			return
		}
		filter.HasCoords = true
		filter.Latitude = *req.Latitude
		filter.Longitude = *req.Longitude
		filter.RadiusMeters = req.RadiusMeters
	}

	jobs, err := h.lifecycle.ListAvailable(c.Request.Context(), worker.TrustLevel, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]dto.JobDTO, 0, len(jobs))
	for i := range jobs {
		out = append(out, dto.FromAvailableJob(&jobs[i], filter.HasCoords))
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// GetWorkerJob handles GET /api/v1/worker/jobs/:job_id
func (h *JobHandler) GetWorkerJob(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.GetForWorker(c.Request.Context(), worker.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// AcceptJob handles POST /api/v1/worker/jobs/:job_id/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Accept(c.Request.Context(), worker.ID, worker.TrustLevel, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// StartJob handles POST /api/v1/worker/jobs/:job_id/start
func (h *JobHandler) StartJob(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Start(c.Request.Context(), worker.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// SubmitJob handles POST /api/v1/worker/jobs/:job_id/submit
func (h *JobHandler) SubmitJob(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Submit(c.Request.Context(), worker.ID, c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// UploadDeliverable handles POST /api/v1/worker/jobs/:job_id/deliverables
// Multipart upload: the artifact under "file" plus capture metadata
// form fields.
func (h *JobHandler) UploadDeliverable(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, "a file part is required")
		return
	}
	if fileHeader.Size > maxDeliverableBytes {
		respondValidation(c, "file exceeds the maximum deliverable size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondValidation(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	input := lifecycle.UploadDeliverableInput{
		Kind:      c.PostForm("kind"),
		MediaType: fileHeader.Header.Get("Content-Type"),
		Caption:   c.PostForm("caption"),
		Content:   file,
	}

	if v := c.PostForm("capture_lat"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondValidation(c, "capture_lat must be a number")
			return
		}
		input.CaptureLat = lat
	}
	if v := c.PostForm("capture_lng"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondValidation(c, "capture_lng must be a number")
			return
		}
		input.CaptureLng = lng
	}
	if v := c.PostForm("captured_at"); v != "" {
		capturedAt, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondValidation(c, "captured_at must be an RFC 3339 timestamp")
			return
		}
		input.CapturedAt = &capturedAt
	}

	deliverable, err := h.lifecycle.UploadDeliverable(c.Request.Context(), worker.ID, c.Param("job_id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromDeliverable(deliverable))
}

// ListWorkerDeliverables handles GET /api/v1/worker/jobs/:job_id/deliverables
func (h *JobHandler) ListWorkerDeliverables(c *gin.Context) {
	worker, ok := h.worker(c)
	if !ok {
		return
	}

	deliverables, err := h.lifecycle.ListDeliverablesForWorker(c.Request.Context(), worker.ID, c.Param("job_id"))
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
