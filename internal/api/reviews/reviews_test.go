package reviews

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

type fakeStore struct {
	jobs    map[string]*model.Job
	reviews map[string]*model.Review
	avg     float64
	count   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:    make(map[string]*model.Job),
		reviews: make(map[string]*model.Review),
	}
}

func (f *fakeStore) GetJobForAgent(_ context.Context, jobID, agentID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok || job.AgentID != agentID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) CreateReview(_ context.Context, r *model.Review) error {
	if _, exists := f.reviews[r.JobID]; exists {
		return domain.ErrReviewExists
	}
	f.reviews[r.JobID] = r
	return nil
}

func (f *fakeStore) GetWorkerRating(_ context.Context, _ string) (float64, int, error) {
	return f.avg, f.count, nil
}

func (f *fakeStore) SetWorkerRating(_ context.Context, _ string, avg float64, count int) error {
	f.avg = avg
	f.count = count
	return nil
}

func (f *fakeStore) addCompletedJob(jobID string) {
	f.jobs[jobID] = &model.Job{
		ID:       jobID,
		AgentID:  "agent-1",
		WorkerID: sql.NullString{String: "worker-1", Valid: true},
		Status:   domain.JobStatusCompleted,
	}
}

func newService(store *fakeStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreate_RunningAverage(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	// Ratings 5, 3, 4 land on an average of 4.0.
	for i, rating := range []int{5, 3, 4} {
		jobID := string(rune('a' + i))
		store.addCompletedJob(jobID)
		_, err := svc.Create(ctx, "agent-1", jobID, rating, "")
		require.NoError(t, err)
	}

	assert.InDelta(t, 4.0, store.avg, 1e-9)
	assert.Equal(t, 3, store.count)
}

func TestCreate_RatingBounds(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	svc := newService(store)
	ctx := context.Background()

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.Create(ctx, "agent-1", "job-1", rating, "")
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	}
}

func TestCreate_OnlyCompletedJobs(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	store.jobs["job-1"].Status = domain.JobStatusSubmitted
	svc := newService(store)

	_, err := svc.Create(context.Background(), "agent-1", "job-1", 5, "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPreconditionFailed))
}

func TestCreate_OncePerJob(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "agent-1", "job-1", 5, "great work")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "agent-1", "job-1", 1, "changed my mind")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPreconditionFailed))

	// The first rating stands.
	assert.InDelta(t, 5.0, store.avg, 1e-9)
	assert.Equal(t, 1, store.count)
}

func TestCreate_OwnerOnly(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	svc := newService(store)

	_, err := svc.Create(context.Background(), "agent-2", "job-1", 5, "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
