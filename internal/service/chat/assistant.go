package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
)

// AssistantHandle resolves the assistant handle for one graph once and shares
// it between sessions. A failed resolution is retried on the next call.
type AssistantHandle struct {
	graphID string

	mu sync.Mutex
	id string
}

// NewAssistantHandle returns an unresolved handle for graphID.
func NewAssistantHandle(graphID string) *AssistantHandle {
	if graphID == "" {
		graphID = runtime.DefaultGraphID
	}
	return &AssistantHandle{graphID: graphID}
}

// GraphID returns the graph the handle resolves.
func (h *AssistantHandle) GraphID() string {
	return h.graphID
}

// Resolve returns the memoized assistant id, asking rt on first use.
func (h *AssistantHandle) Resolve(ctx context.Context, rt runtime.Runtime) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.id != "" {
		return h.id, nil
	}
	id, err := rt.ResolveAssistant(ctx, h.graphID)
	if err != nil {
		return "", err
	}
	h.id = id
	return id, nil
}
