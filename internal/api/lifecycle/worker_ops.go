package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
	"github.com/taskpin/taskpin-be/internal/api/storage"
)

// Accept assigns an available job to the calling worker
// (available → assigned). The worker's trust tier must satisfy the
// job's requirement.
func (s *Service) Accept(ctx context.Context, workerID string, tier domain.TrustLevel, jobID string) (job *model.Job, err error) {
	defer func() { transitionMetric("accept", err) }()

	job, err = s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusAvailable {
		return nil, domain.ErrJobConflict
	}

	if time.Now().After(job.ExpiresAt) {
		return nil, domain.E(domain.KindPreconditionFailed, "job has expired")
	}

	if !tier.Satisfies(job.RequiredTrustLevel) {
		return nil, domain.E(domain.KindUnauthorized,
			fmt.Sprintf("job requires trust level %s", job.RequiredTrustLevel))
	}

	if err = s.store.MarkAssigned(ctx, jobID, workerID); err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusAssigned
	job.WorkerID = nullString(workerID)
	job.AssignedAt = nullTimeNow()

	s.logger.Info("Job accepted",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
	)

	s.notifier.JobStatusChanged(job, "")

	return job, nil
}

// Start begins work on an assigned job (assigned → in_progress).
func (s *Service) Start(ctx context.Context, workerID, jobID string) (job *model.Job, err error) {
	defer func() { transitionMetric("start", err) }()

	job, err = s.store.GetJobForWorker(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusAssigned {
		return nil, domain.ErrJobConflict
	}

	if err = s.store.MarkStarted(ctx, jobID, workerID); err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusInProgress
	job.StartedAt = nullTimeNow()

	s.logger.Info("Job started",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
	)

	s.notifier.JobStatusChanged(job, "")

	return job, nil
}

// Submit hands the job over for review (in_progress → submitted).
// At least one deliverable must exist; no money moves yet.
func (s *Service) Submit(ctx context.Context, workerID, jobID string) (job *model.Job, err error) {
	defer func() { transitionMetric("submit", err) }()

	job, err = s.store.GetJobForWorker(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusInProgress {
		return nil, domain.ErrJobConflict
	}

	count, err := s.store.CountDeliverablesByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.E(domain.KindPreconditionFailed, "at least one deliverable must be uploaded before submitting")
	}

	if err = s.store.MarkSubmitted(ctx, jobID, workerID); err != nil {
		return nil, err
	}

	job.Status = domain.JobStatusSubmitted
	job.SubmittedAt = nullTimeNow()

	s.logger.Info("Job submitted",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.Int("deliverables", count),
	)

	s.notifier.JobStatusChanged(job, "")

	return job, nil
}

// UploadDeliverableInput carries one artifact and its capture metadata.
type UploadDeliverableInput struct {
	Kind       string
	MediaType  string
	Caption    string
	CaptureLat float64
	CaptureLng float64
	CapturedAt *time.Time
	Content    io.Reader
}

// UploadDeliverable stores an artifact for an in-progress job. The
// blob goes to the object store first; a failed row insert removes
// the stored blob again.
func (s *Service) UploadDeliverable(ctx context.Context, workerID, jobID string, input UploadDeliverableInput) (*model.Deliverable, error) {
	if input.Kind == "" {
		return nil, domain.E(domain.KindValidation, "deliverable kind is required")
	}
	if input.Content == nil {
		return nil, domain.E(domain.KindValidation, "deliverable content is required")
	}

	job, err := s.store.GetJobForWorker(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusInProgress {
		return nil, domain.ErrJobConflict
	}

	key := fmt.Sprintf("deliverables/%s/%s", jobID, uuid.New().String())

	size, err := s.objects.Put(ctx, key, input.Content, input.MediaType)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamUnavailable, "failed to store deliverable", err)
	}

	deliverable := &model.Deliverable{
		ID:         uuid.New().String(),
		JobID:      jobID,
		WorkerID:   workerID,
		Kind:       input.Kind,
		StorageKey: key,
		SizeBytes:  size,
		MediaType:  input.MediaType,
		Caption:    input.Caption,
		CaptureLat: input.CaptureLat,
		CaptureLng: input.CaptureLng,
		CapturedAt: nullTimePtr(input.CapturedAt),
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateDeliverable(ctx, deliverable); err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned deliverable object",
				slog.String("storage_key", key),
				slog.Any("error", delErr),
			)
		}
		return nil, err
	}

	s.logger.Info("Deliverable uploaded",
		slog.String("job_id", jobID),
		slog.String("deliverable_id", deliverable.ID),
		slog.Int64("size_bytes", size),
	)

	return deliverable, nil
}

// ListAvailable returns open jobs the worker qualifies for, nearest
// first when coordinates are given.
func (s *Service) ListAvailable(ctx context.Context, tier domain.TrustLevel, filter storage.AvailableJobsFilter) ([]model.AvailableJob, error) {
	filter.TrustLevel = tier
	return s.store.ListAvailableJobs(ctx, filter)
}

// GetForWorker returns a job visible to its assigned worker.
func (s *Service) GetForWorker(ctx context.Context, workerID, jobID string) (*model.Job, error) {
	return s.store.GetJobForWorker(ctx, jobID, workerID)
}

// ListDeliverablesForWorker lists a job's deliverables for its
// assigned worker.
func (s *Service) ListDeliverablesForWorker(ctx context.Context, workerID, jobID string) ([]model.Deliverable, error) {
	if _, err := s.store.GetJobForWorker(ctx, jobID, workerID); err != nil {
		return nil, err
	}
	return s.store.ListDeliverablesByJob(ctx, jobID)
}
