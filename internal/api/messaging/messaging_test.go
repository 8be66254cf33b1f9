package messaging

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

type fakeStore struct {
	jobs     map[string]*model.Job
	messages []model.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*model.Job)}
}

func (f *fakeStore) GetJobForAgent(_ context.Context, jobID, agentID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok || job.AgentID != agentID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) GetJobForWorker(_ context.Context, jobID, workerID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok || !job.WorkerID.Valid || job.WorkerID.String != workerID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, m *model.Message) error {
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) ListMessages(_ context.Context, jobID string, before *time.Time, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if m.JobID != jobID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) MarkMessagesRead(_ context.Context, jobID string, senderRole domain.SenderRole) (int64, error) {
	var marked int64
	for i := range f.messages {
		if f.messages[i].JobID == jobID && f.messages[i].SenderRole == senderRole && !f.messages[i].Read {
			f.messages[i].Read = true
			marked++
		}
	}
	return marked, nil
}

type delivery struct {
	jobID  string
	body   string
	target string
}

type fakeNotifier struct {
	deliveries []delivery
}

func (f *fakeNotifier) JobPosted(*model.Job, string)        {}
func (f *fakeNotifier) JobStatusChanged(*model.Job, string) {}

func (f *fakeNotifier) MessagePosted(jobID string, msg *model.Message, toUserID string) {
	f.deliveries = append(f.deliveries, delivery{jobID: jobID, body: msg.Body, target: toUserID})
}

func assignedJob(jobID string) *model.Job {
	return &model.Job{
		ID:       jobID,
		AgentID:  "agent-1",
		WorkerID: sql.NullString{String: "worker-1", Valid: true},
		Status:   domain.JobStatusAssigned,
	}
}

func newFixture() (*fakeStore, *fakeNotifier, *Service) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return store, notifier, svc
}

func TestAppend_DeliversToCounterparty(t *testing.T) {
	store, notifier, svc := newFixture()
	store.jobs["job-1"] = assignedJob("job-1")
	ctx := context.Background()

	msg, err := svc.Append(ctx, domain.RoleAgent, "agent-1", "job-1", "how is it going?")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageText, msg.Kind)

	_, err = svc.Append(ctx, domain.RoleWorker, "worker-1", "job-1", "nearly done")
	require.NoError(t, err)

	require.Len(t, notifier.deliveries, 2)
	assert.Equal(t, "worker-1", notifier.deliveries[0].target, "agent message goes to the worker")
	assert.Equal(t, "agent-1", notifier.deliveries[1].target, "worker message goes to the agent")
}

func TestAppend_EmptyBody(t *testing.T) {
	store, _, svc := newFixture()
	store.jobs["job-1"] = assignedJob("job-1")

	_, err := svc.Append(context.Background(), domain.RoleAgent, "agent-1", "job-1", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestAppend_NoConversationBeforeAssignment(t *testing.T) {
	store, _, svc := newFixture()
	job := assignedJob("job-1")
	job.WorkerID = sql.NullString{}
	job.Status = domain.JobStatusAvailable
	store.jobs["job-1"] = job

	_, err := svc.Append(context.Background(), domain.RoleAgent, "agent-1", "job-1", "anyone there?")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestAppend_OwnershipScoping(t *testing.T) {
	store, _, svc := newFixture()
	store.jobs["job-1"] = assignedJob("job-1")
	ctx := context.Background()

	_, err := svc.Append(ctx, domain.RoleAgent, "agent-2", "job-1", "hi")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = svc.Append(ctx, domain.RoleWorker, "worker-2", "job-1", "hi")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestList_SurvivesReassignment(t *testing.T) {
	store, _, svc := newFixture()
	store.jobs["job-1"] = assignedJob("job-1")
	ctx := context.Background()

	_, err := svc.Append(ctx, domain.RoleWorker, "worker-1", "job-1", "first attempt notes")
	require.NoError(t, err)

	// The job is released and picked up by another worker; the
	// thread stays with the job.
	store.jobs["job-1"].WorkerID = sql.NullString{String: "worker-2", Valid: true}

	msgs, err := svc.List(ctx, domain.RoleWorker, "worker-2", "job-1", nil, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first attempt notes", msgs[0].Body)
}

func TestMarkRead_OnlyCounterpartyMessages(t *testing.T) {
	store, _, svc := newFixture()
	store.jobs["job-1"] = assignedJob("job-1")
	ctx := context.Background()

	_, err := svc.Append(ctx, domain.RoleAgent, "agent-1", "job-1", "one")
	require.NoError(t, err)
	_, err = svc.Append(ctx, domain.RoleAgent, "agent-1", "job-1", "two")
	require.NoError(t, err)
	_, err = svc.Append(ctx, domain.RoleWorker, "worker-1", "job-1", "three")
	require.NoError(t, err)

	// The worker marks the agent's two messages, not their own.
	marked, err := svc.MarkRead(ctx, domain.RoleWorker, "worker-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	// Marking again is a no-op.
	marked, err = svc.MarkRead(ctx, domain.RoleWorker, "worker-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), marked)
}
