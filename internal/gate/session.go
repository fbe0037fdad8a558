package gate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks the working context of one gate instance: which materials
// were touched, which operations ran, and where attention currently sits.
type Session struct {
	mu sync.Mutex

	id        string
	agentID   string
	startedAt time.Time

	materialsAccessed   []string
	operationsPerformed []string
	currentFocus        string
	queryCount          int
}

// NewSession starts a fresh session with a generated id
func NewSession(agentID string) *Session {
	return &Session{
		id:        uuid.NewString(),
		agentID:   agentID,
		startedAt: time.Now(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// AccessMaterial records that a material was touched and moves focus to it
func (s *Session) AccessMaterial(materialID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.materialsAccessed {
		if id == materialID {
			s.currentFocus = materialID
			return
		}
	}
	s.materialsAccessed = append(s.materialsAccessed, materialID)
	s.currentFocus = materialID
}

// RecordOperation notes one performed operation
func (s *Session) RecordOperation(operation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operationsPerformed = append(s.operationsPerformed, operation)
}

// RecordQuery bumps the free-text query counter
func (s *Session) RecordQuery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCount++
}

// Summary returns the session context as a serializable map
func (s *Session) Summary() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"session_id":         s.id,
		"agent_id":           s.agentID,
		"started_at":         s.startedAt.Format(time.RFC3339),
		"duration_seconds":   time.Since(s.startedAt).Seconds(),
		"materials_accessed": append([]string{}, s.materialsAccessed...),
		"operations_count":   len(s.operationsPerformed),
		"queries_count":      s.queryCount,
		"current_focus":      s.currentFocus,
	}
}
