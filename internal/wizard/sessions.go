package wizard

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/metrics"
	"github.com/degaulle/sorashorts/internal/workflow"
)

// Session 一个浏览器会话：独立的向导状态机和事件中心
type Session struct {
	ID   string
	Orch *workflow.Orchestrator
	Hub  *Hub
}

// OrchestratorFactory builds the orchestrator of a new session around its
// renderer.
type OrchestratorFactory func(r workflow.Renderer, log *logrus.Entry) *workflow.Orchestrator

// Sessions 会话状态管理，按 cookie 中的 ID 查找
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  OrchestratorFactory
}

func NewSessions(factory OrchestratorFactory) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Create starts a fresh session on the upload screen.
func (s *Sessions) Create() *Session {
	id := uuid.NewString()
	hub := NewHub()
	sess := &Session{
		ID:   id,
		Orch: s.factory(hub, logrus.WithField("session_id", id)),
		Hub:  hub,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return sess
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll ends the event streams of every session.
func (s *Sessions) CloseAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.Hub.Close()
	}
}
