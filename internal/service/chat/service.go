package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
)

// Service keeps the live session controllers of the gateway.
type Service struct {
	rt         runtime.Runtime
	assistants *AssistantHandle
	opts       Options

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewService creates a registry whose sessions share rt and the assistant handle.
func NewService(rt runtime.Runtime, assistants *AssistantHandle, opts Options) *Service {
	if assistants == nil {
		assistants = NewAssistantHandle("")
	}
	return &Service{
		rt:         rt,
		assistants: assistants,
		opts:       opts,
		sessions:   make(map[string]*Controller),
	}
}

// CreateSession registers a new session and initializes it. The controller is
// returned and kept even when initialization fails so the caller can Reset it.
func (s *Service) CreateSession(ctx context.Context) (*Controller, error) {
	opts := s.opts
	opts.SessionID = uuid.NewString()
	controller := NewController(s.rt, s.assistants, opts)

	s.mu.Lock()
	s.sessions[opts.SessionID] = controller
	s.mu.Unlock()

	return controller, controller.Initialize(ctx)
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	controller, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return controller, nil
}

// DeleteSession forgets a session.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
