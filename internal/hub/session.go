package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Session is one connected client in the room. Writes serialize
// behind sendMu so a broadcast never interleaves with a handler
// reply on the same connection.
type Session struct {
	ID     string
	UserID string
	Role   string

	conn   *websocket.Conn
	sendMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
	subs     map[string]struct{}
}

func newSession(id, userID, role string, conn *websocket.Conn) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		Role:     role,
		conn:     conn,
		lastSeen: time.Now(),
		subs:     make(map[string]struct{}),
	}
}

func (s *Session) send(frame *outboundFrame) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(frame)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) staleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

func (s *Session) subscribe(jobID string) {
	s.mu.Lock()
	s.subs[jobID] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) unsubscribe(jobID string) {
	s.mu.Lock()
	delete(s.subs, jobID)
	s.mu.Unlock()
}

func (s *Session) subscribed(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[jobID]
	return ok
}

// close tears the connection down; safe to call more than once.
func (s *Session) close() {
	s.conn.Close()
}
