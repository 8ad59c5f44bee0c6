package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PipeOpsHQ/agent-kickoff/types"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the run has left the created state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RunState is the record of one run: an id fixed at construction and a
// message written at most once by the owning Runner.
type RunState struct {
	mu          sync.RWMutex
	id          string
	message     string
	status      Status
	usage       *types.Usage
	startedAt   time.Time
	completedAt time.Time
}

// NewRunState allocates a state with id from newID, or a random UUID when
// newID is nil or yields an empty string.
func NewRunState(newID func() string) *RunState {
	id := ""
	if newID != nil {
		id = newID()
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &RunState{id: id, status: StatusCreated}
}

func (s *RunState) ID() string {
	return s.id
}

func (s *RunState) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

func (s *RunState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *RunState) Usage() *types.Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usage == nil {
		return nil
	}
	u := *s.usage
	return &u
}

func (s *RunState) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

func (s *RunState) CompletedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedAt
}

// Snapshot copies the state into a serializable result.
func (s *RunState) Snapshot() types.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.RunResult{
		RunID:   s.id,
		Status:  string(s.status),
		Message: s.message,
	}
	if s.usage != nil {
		u := *s.usage
		out.Usage = &u
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		out.StartedAt = &t
	}
	if !s.completedAt.IsZero() {
		t := s.completedAt
		out.CompletedAt = &t
	}
	return out
}

// begin claims the state for execution. It fails if a run already started.
func (s *RunState) begin(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated || !s.startedAt.IsZero() {
		return false
	}
	s.startedAt = at
	return true
}

func (s *RunState) complete(message string, usage *types.Usage, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return
	}
	s.message = message
	s.usage = usage
	s.status = StatusCompleted
	s.completedAt = at
}

func (s *RunState) fail(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return
	}
	s.status = StatusFailed
	s.completedAt = at
}
