// Package hub is the notification fan-out room: a registry of
// connected WebSocket sessions receiving job and message events.
// Registry mutation serializes behind one mutex; the liveness sweep
// runs only while sessions exist and shuts itself down when the
// registry drains.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/taskpin/taskpin-be/internal/api/model"
	"github.com/taskpin/taskpin-be/internal/observability"
)

// Config holds the liveness sweep settings.
type Config struct {
	// PingInterval is the sweep cadence; live sessions receive a
	// server_ping each round.
	PingInterval time.Duration
	// StaleAfter is how long a session may stay silent before the
	// sweep force-closes it.
	StaleAfter time.Duration
}

// Hub is the room registry.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	sweepStop chan struct{}
	sweeping  bool
}

// New creates an empty room.
func New(cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Register adds a connection to the room and acknowledges it with a
// session_established frame. The first session starts the liveness
// sweep.
func (h *Hub) Register(conn *websocket.Conn, userID, role string) *Session {
	session := newSession(uuid.New().String(), userID, role, conn)

	h.mu.Lock()
	h.sessions[session.ID] = session
	if !h.sweeping {
		h.sweepStop = make(chan struct{})
		h.sweeping = true
		go h.sweep(h.sweepStop)
	}
	h.mu.Unlock()

	observability.HubSessions.Inc()

	h.logger.Info("Session registered",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.String("role", role),
	)

	if err := session.send(&outboundFrame{Type: frameSessionEstablished, SessionID: session.ID}); err != nil {
		h.logger.Warn("Failed to acknowledge session", slog.String("session_id", session.ID), slog.Any("error", err))
	}

	return session
}

// Deregister removes a session. The last session out stops the
// liveness sweep so an idle room costs nothing.
func (h *Hub) Deregister(sessionID string) {
	h.mu.Lock()
	_, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
		if len(h.sessions) == 0 && h.sweeping {
			close(h.sweepStop)
			h.sweeping = false
		}
	}
	h.mu.Unlock()

	if ok {
		observability.HubSessions.Dec()
		h.logger.Info("Session deregistered", slog.String("session_id", sessionID))
	}
}

// ReadLoop consumes inbound frames until the connection drops, then
// deregisters the session. Runs on the connection's handler
// goroutine.
func (h *Hub) ReadLoop(session *Session) {
	defer func() {
		session.close()
		h.Deregister(session.ID)
	}()

	for {
		var frame inboundFrame
		if err := session.conn.ReadJSON(&frame); err != nil {
			return
		}

		session.touch()

		switch frame.Type {
		case inboundPing:
			h.reply(session, &outboundFrame{Type: framePong})
		case inboundSubscribeJob:
			if frame.JobID == "" {
				h.reply(session, &outboundFrame{Type: frameError, Error: "job_id is required"})
				continue
			}
			session.subscribe(frame.JobID)
		case inboundUnsubscribeJob:
			if frame.JobID == "" {
				h.reply(session, &outboundFrame{Type: frameError, Error: "job_id is required"})
				continue
			}
			session.unsubscribe(frame.JobID)
		default:
			h.reply(session, &outboundFrame{Type: frameError, Error: "unknown message type"})
		}
	}
}

func (h *Hub) reply(session *Session, frame *outboundFrame) {
	if err := session.send(frame); err != nil {
		h.logger.Debug("Failed to write frame",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
	}
}

// snapshot copies the current session set so fan-out writes happen
// outside the registry lock.
func (h *Hub) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// JobPosted announces a job joining the pool to every session except
// the excluded user's.
func (h *Hub) JobPosted(job *model.Job, excludeUserID string) {
	observability.HubBroadcasts.WithLabelValues(frameNewJob).Inc()

	event := newJobEvent(job)
	for _, s := range h.snapshot() {
		if excludeUserID != "" && s.UserID == excludeUserID {
			continue
		}
		h.reply(s, &outboundFrame{Type: frameNewJob, Job: event})
	}
}

// JobStatusChanged announces a transition. With a target user only
// that user's sessions hear it; otherwise delivery goes to every
// session with a stake in the job: its agent, its worker, and anyone
// subscribed to it.
func (h *Hub) JobStatusChanged(job *model.Job, toUserID string) {
	observability.HubBroadcasts.WithLabelValues(frameJobStatus).Inc()

	event := newJobEvent(job)
	for _, s := range h.snapshot() {
		if toUserID != "" {
			if s.UserID != toUserID {
				continue
			}
		} else if !h.interested(s, job) {
			continue
		}
		h.reply(s, &outboundFrame{Type: frameJobStatus, Job: event})
	}
}

func (h *Hub) interested(s *Session, job *model.Job) bool {
	if s.UserID == job.AgentID {
		return true
	}
	if job.WorkerID.Valid && s.UserID == job.WorkerID.String {
		return true
	}
	return s.subscribed(job.ID)
}

// MessagePosted delivers a conversation message to exactly the
// recipient's sessions.
func (h *Hub) MessagePosted(jobID string, msg *model.Message, toUserID string) {
	observability.HubBroadcasts.WithLabelValues(frameNewMessage).Inc()

	event := newMessageEvent(jobID, msg)
	for _, s := range h.snapshot() {
		if s.UserID != toUserID {
			continue
		}
		h.reply(s, &outboundFrame{Type: frameNewMessage, Message: event})
	}
}

// sweep is the liveness loop: each round, stale sessions are
// force-closed and evicted, everyone else receives a probe. The loop
// exits when the registry drains (stop is closed by Deregister).
func (h *Hub) sweep(stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-h.cfg.StaleAfter)

			var stale []*Session
			var live []*Session
			for _, s := range h.snapshot() {
				if s.staleSince(cutoff) {
					stale = append(stale, s)
				} else {
					live = append(live, s)
				}
			}

			for _, s := range stale {
				h.logger.Info("Evicting stale session",
					slog.String("session_id", s.ID),
					slog.String("user_id", s.UserID),
				)
				s.close()
				h.Deregister(s.ID)
			}

			for _, s := range live {
				h.reply(s, &outboundFrame{Type: frameServerPing})
			}
		}
	}
}
