// Package runtime defines the contract of the remote multi-agent runtime the
// chat sessions talk to.
package runtime

import (
	"context"
	"errors"

	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
)

// DefaultGraphID is the graph resolved when none is configured.
const DefaultGraphID = "agent"

// ErrThreadNotFound is returned for thread handles the runtime does not know.
var ErrThreadNotFound = errors.New("runtime: thread not found")

// Runtime is the agent runtime as seen by a session controller.
type Runtime interface {
	// CreateThread allocates a new conversation thread and returns its handle.
	CreateThread(ctx context.Context) (string, error)
	// ResolveAssistant returns the assistant handle for a graph.
	ResolveAssistant(ctx context.Context, graphID string) (string, error)
	// AppendUserTurn adds a user message to the thread state without running the graph.
	AppendUserTurn(ctx context.Context, threadID, content string) error
	// RunAndWait runs the assistant on the thread and blocks until the run finishes.
	RunAndWait(ctx context.Context, threadID, assistantID string) error
	// StreamRun submits content as a user turn and streams the run's state updates.
	StreamRun(ctx context.Context, threadID, assistantID, content string) (Stream, error)
	// FetchState returns every message of the thread in conversation order.
	FetchState(ctx context.Context, threadID string) ([]wire.RawMessage, error)
}

// Stream yields the state updates of one run in arrival order. Recv returns
// io.EOF once the run has completed.
type Stream interface {
	Recv() (wire.Update, error)
	Close() error
}
