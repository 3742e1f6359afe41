// Package runtimetest provides a scripted runtime.Runtime for tests.
package runtimetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
)

// Fake replays scripted responses. Error fields fail the matching call.
type Fake struct {
	mu sync.Mutex

	CreateThreadErr error
	ResolveErr      error
	AppendErr       error
	RunErr          error
	StreamErr       error
	FetchErr        error

	// Updates are yielded by every stream, followed by StreamFailure or io.EOF.
	Updates       []wire.Update
	StreamFailure error
	// State is returned by FetchState.
	State []wire.RawMessage

	threads      int
	resolveCalls int
	turns        []string
}

var _ runtime.Runtime = (*Fake)(nil)

func (f *Fake) CreateThread(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateThreadErr != nil {
		return "", f.CreateThreadErr
	}
	f.threads++
	return fmt.Sprintf("thread-%d", f.threads), nil
}

func (f *Fake) ResolveAssistant(_ context.Context, graphID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.ResolveErr != nil {
		return "", f.ResolveErr
	}
	return "assistant-" + graphID, nil
}

func (f *Fake) AppendUserTurn(_ context.Context, _ string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.turns = append(f.turns, content)
	return nil
}

func (f *Fake) RunAndWait(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RunErr
}

func (f *Fake) StreamRun(_ context.Context, _ string, _ string, content string) (runtime.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StreamErr != nil {
		return nil, f.StreamErr
	}
	f.turns = append(f.turns, content)
	updates := append([]wire.Update(nil), f.Updates...)
	return &stream{updates: updates, failure: f.StreamFailure}, nil
}

func (f *Fake) FetchState(context.Context, string) ([]wire.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]wire.RawMessage(nil), f.State...), nil
}

// Threads reports how many threads were created.
func (f *Fake) Threads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads
}

// ResolveCalls reports how many times ResolveAssistant ran.
func (f *Fake) ResolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCalls
}

// Turns returns the user turns submitted so far, as the runtime received them.
func (f *Fake) Turns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.turns...)
}

// Messages is a convenience for building wire message lists from JSON literals.
func Messages(records ...string) []wire.RawMessage {
	out := make([]wire.RawMessage, 0, len(records))
	for _, record := range records {
		out = append(out, wire.RawMessage(record))
	}
	return out
}

type stream struct {
	updates []wire.Update
	failure error
	closed  bool
}

func (s *stream) Recv() (wire.Update, error) {
	if s.closed {
		return wire.Update{}, io.EOF
	}
	if len(s.updates) > 0 {
		next := s.updates[0]
		s.updates = s.updates[1:]
		return next, nil
	}
	if s.failure != nil {
		return wire.Update{}, s.failure
	}
	return wire.Update{}, io.EOF
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}
