package hub

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newTestServer exposes the hub behind a test endpoint. The client
// identifies itself with user and role query parameters.
func newTestServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session := h.Register(conn, r.URL.Query().Get("user"), r.URL.Query().Get("role"))
		h.ReadLoop(session)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + user + "&role=" + role
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *outboundFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return &frame
}

// readUntil skips frames (such as interleaved server pings) until one
// of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) *outboundFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame outboundFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return &frame
		}
	}
	t.Fatalf("no %s frame before deadline", frameType)
	return nil
}

func newTestHub() *Hub {
	return New(Config{
		PingInterval: 50 * time.Millisecond,
		StaleAfter:   10 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (h *Hub) sessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func waitForSessions(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.sessionCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d sessions, have %d", want, h.sessionCount())
}

func TestRegister_EstablishesSession(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")

	frame := readFrame(t, conn)
	assert.Equal(t, frameSessionEstablished, frame.Type)
	assert.NotEmpty(t, frame.SessionID)
	waitForSessions(t, h, 1)
}

func TestPingPong(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")
	readFrame(t, conn) // session_established

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	frame := readUntil(t, conn, framePong)
	assert.Equal(t, framePong, frame.Type)
}

func TestUnknownFrame_ErrorWithoutDisconnect(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "abracadabra"}))
	frame := readUntil(t, conn, frameError)
	assert.Equal(t, "unknown message type", frame.Error)

	// The socket is still alive.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, conn, framePong)
}

func TestSubscribe_RequiresJobID(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe_job"}))
	frame := readUntil(t, conn, frameError)
	assert.Equal(t, "job_id is required", frame.Error)
}

func TestJobPosted_ExcludesUser(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	agentConn := dial(t, srv, "agent-1", "agent")
	workerConn := dial(t, srv, "worker-1", "worker")
	readFrame(t, agentConn)
	readFrame(t, workerConn)
	waitForSessions(t, h, 2)

	h.JobPosted(&model.Job{ID: "job-1", Status: domain.JobStatusAvailable, Title: "t"}, "agent-1")

	frame := readUntil(t, workerConn, frameNewJob)
	require.NotNil(t, frame.Job)
	assert.Equal(t, "job-1", frame.Job.JobID)

	// The excluded agent hears nothing but sweep pings.
	agentConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	for {
		var got outboundFrame
		if err := agentConn.ReadJSON(&got); err != nil {
			break // timed out with no new_job frame
		}
		assert.NotEqual(t, frameNewJob, got.Type)
	}
}

func TestJobStatusChanged_Targeting(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	agentConn := dial(t, srv, "agent-1", "agent")
	workerConn := dial(t, srv, "worker-1", "worker")
	observerConn := dial(t, srv, "worker-2", "worker")
	readFrame(t, agentConn)
	readFrame(t, workerConn)
	readFrame(t, observerConn)
	waitForSessions(t, h, 3)

	// The observer subscribes to the job explicitly.
	require.NoError(t, observerConn.WriteJSON(map[string]string{"type": "subscribe_job", "job_id": "job-1"}))
	time.Sleep(50 * time.Millisecond)

	job := &model.Job{
		ID:       "job-1",
		AgentID:  "agent-1",
		WorkerID: sql.NullString{String: "worker-1", Valid: true},
		Status:   domain.JobStatusAssigned,
	}
	h.JobStatusChanged(job, "")

	// Agent, assigned worker, and subscriber all hear it.
	for _, conn := range []*websocket.Conn{agentConn, workerConn, observerConn} {
		frame := readUntil(t, conn, frameJobStatus)
		require.NotNil(t, frame.Job)
		assert.Equal(t, string(domain.JobStatusAssigned), frame.Job.Status)
	}
}

func TestMessagePosted_RecipientOnly(t *testing.T) {
	h := newTestHub()
	srv := newTestServer(t, h)

	workerConn := dial(t, srv, "worker-1", "worker")
	otherConn := dial(t, srv, "worker-2", "worker")
	readFrame(t, workerConn)
	readFrame(t, otherConn)
	waitForSessions(t, h, 2)

	h.MessagePosted("job-1", &model.Message{
		ID:         "msg-1",
		JobID:      "job-1",
		SenderRole: domain.RoleAgent,
		Kind:       domain.MessageText,
		Body:       "hello",
	}, "worker-1")

	frame := readUntil(t, workerConn, frameNewMessage)
	require.NotNil(t, frame.Message)
	assert.Equal(t, "hello", frame.Message.Body)

	otherConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	for {
		var got outboundFrame
		if err := otherConn.ReadJSON(&got); err != nil {
			break
		}
		assert.NotEqual(t, frameNewMessage, got.Type)
	}
}

func TestSweep_EvictsStaleSessions(t *testing.T) {
	h := New(Config{
		PingInterval: 20 * time.Millisecond,
		StaleAfter:   60 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")
	readFrame(t, conn)
	waitForSessions(t, h, 1)

	// The client goes silent; the sweep must force-close it.
	deadline := time.Now().Add(2 * time.Second)
	var closed bool
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame outboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			closed = true
			break
		}
	}
	assert.True(t, closed, "stale session should have been force-closed")
	waitForSessions(t, h, 0)
}

func TestSweep_KeepsActiveSessions(t *testing.T) {
	h := New(Config{
		PingInterval: 20 * time.Millisecond,
		StaleAfter:   80 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, h)

	conn := dial(t, srv, "worker-1", "worker")
	readFrame(t, conn)

	// Keep pinging past several stale windows.
	stop := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(stop) {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
		time.Sleep(25 * time.Millisecond)
	}

	assert.Equal(t, 1, h.sessionCount())
}
