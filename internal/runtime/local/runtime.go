// Package local runs the recommendation turn in process: an eino chat chain
// backed by an Ark model stands in for the remote agent graph.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/config"
	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
)

// ErrNoPendingTurn is returned by RunAndWait when the thread does not end with a user turn.
var ErrNoPendingTurn = errors.New("local runtime: no pending user turn")

// Generator is the compiled chain the runtime drives. compose.Runnable satisfies it.
type Generator interface {
	Invoke(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.Message, error)
	Stream(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.StreamReader[*schema.Message], error)
}

// Runtime keeps threads in memory and answers every turn as the summarizer node.
type Runtime struct {
	generator Generator
	node      string

	mu      sync.Mutex
	threads map[string]*thread
}

type thread struct {
	raw     []wire.RawMessage
	history []*schema.Message
}

var _ runtime.Runtime = (*Runtime)(nil)

// NewRuntime builds the chat chain from cfg and returns a runtime around it.
func NewRuntime(ctx context.Context, cfg config.AIConfig, node string) (*Runtime, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return New(runnable, node), nil
}

// New wraps an already compiled generator.
func New(generator Generator, node string) *Runtime {
	return &Runtime{
		generator: generator,
		node:      node,
		threads:   make(map[string]*thread),
	}
}

// CreateThread allocates an empty in-memory thread.
func (r *Runtime) CreateThread(_ context.Context) (string, error) {
	id := uuid.NewString()
	r.mu.Lock()
	r.threads[id] = &thread{}
	r.mu.Unlock()
	return id, nil
}

// ResolveAssistant returns a handle naming the local graph.
func (r *Runtime) ResolveAssistant(_ context.Context, graphID string) (string, error) {
	if graphID == "" {
		graphID = runtime.DefaultGraphID
	}
	return "local:" + graphID, nil
}

// AppendUserTurn records a user message on the thread.
func (r *Runtime) AppendUserTurn(_ context.Context, threadID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[threadID]
	if !ok {
		return runtime.ErrThreadNotFound
	}
	raw, err := encodeMessage("human", "", uuid.NewString(), content)
	if err != nil {
		return err
	}
	t.raw = append(t.raw, raw)
	t.history = append(t.history, schema.UserMessage(content))
	return nil
}

// RunAndWait answers the pending user turn.
func (r *Runtime) RunAndWait(ctx context.Context, threadID, _ string) error {
	input, err := r.pendingInput(threadID)
	if err != nil {
		return err
	}

	response, err := r.generator.Invoke(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to run chat chain: %w", err)
	}

	if err := r.appendReply(threadID, uuid.NewString(), response.Content); err != nil {
		return err
	}
	log.Printf("[local] generated reply for thread=%s, length=%d", threadID, len(response.Content))
	return nil
}

// StreamRun appends content as a user turn and streams the reply.
func (r *Runtime) StreamRun(ctx context.Context, threadID, _ string, content string) (runtime.Stream, error) {
	if err := r.AppendUserTurn(ctx, threadID, content); err != nil {
		return nil, err
	}
	input, err := r.pendingInput(threadID)
	if err != nil {
		return nil, err
	}

	reader, err := r.generator.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}

	return &replyStream{
		runtime:  r,
		threadID: threadID,
		replyID:  uuid.NewString(),
		reader:   reader,
	}, nil
}

// FetchState returns a copy of the thread's messages.
func (r *Runtime) FetchState(_ context.Context, threadID string) ([]wire.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[threadID]
	if !ok {
		return nil, runtime.ErrThreadNotFound
	}
	copied := make([]wire.RawMessage, len(t.raw))
	copy(copied, t.raw)
	return copied, nil
}

// pendingInput builds the chain input for the last user turn of the thread.
func (r *Runtime) pendingInput(threadID string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[threadID]
	if !ok {
		return nil, runtime.ErrThreadNotFound
	}
	n := len(t.history)
	if n == 0 || t.history[n-1].Role != schema.User {
		return nil, ErrNoPendingTurn
	}

	history := t.history[:n-1]
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return map[string]any{
		"system":  systemPrompt(r.node),
		"history": append([]*schema.Message(nil), history...),
		"query":   t.history[n-1].Content,
	}, nil
}

func (r *Runtime) appendReply(threadID, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[threadID]
	if !ok {
		return runtime.ErrThreadNotFound
	}
	raw, err := encodeMessage("ai", r.node, id, content)
	if err != nil {
		return err
	}
	t.raw = append(t.raw, raw)
	t.history = append(t.history, schema.AssistantMessage(content, nil))
	return nil
}

type localMessage struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

func encodeMessage(kind, name, id, content string) (wire.RawMessage, error) {
	data, err := json.Marshal(localMessage{ID: id, Type: kind, Name: name, Content: content})
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", kind, err)
	}
	return data, nil
}

// replyStream turns model chunks into summarizer updates. The reply is stored
// on the thread once the model stream ends.
type replyStream struct {
	runtime  *Runtime
	threadID string
	replyID  string
	reader   *schema.StreamReader[*schema.Message]
	content  strings.Builder
	done     bool
}

func (s *replyStream) Recv() (wire.Update, error) {
	for {
		if s.done {
			return wire.Update{}, io.EOF
		}

		chunk, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			if err := s.runtime.appendReply(s.threadID, s.replyID, s.content.String()); err != nil {
				return wire.Update{}, err
			}
			messages, err := s.runtime.FetchState(context.Background(), s.threadID)
			if err != nil {
				return wire.Update{}, err
			}
			return wire.Update{Final: true, Messages: messages}, nil
		}
		if err != nil {
			s.done = true
			return wire.Update{}, fmt.Errorf("chat chain stream failed: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		s.content.WriteString(chunk.Content)
		if partialJSON(s.content.String()) {
			continue
		}
		raw, err := encodeMessage("ai", s.runtime.node, s.replyID, s.content.String())
		if err != nil {
			s.done = true
			return wire.Update{}, err
		}
		return wire.Update{Node: s.runtime.node, Messages: []wire.RawMessage{raw}}, nil
	}
}

func (s *replyStream) Close() error {
	s.done = true
	s.reader.Close()
	return nil
}

// partialJSON reports whether text is an unfinished JSON document, which would
// render as noise if shown mid-stream.
func partialJSON(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if trimmed[0] != '{' && trimmed[0] != '[' && !strings.HasPrefix(trimmed, "```") {
		return false
	}
	if strings.HasPrefix(trimmed, "```") {
		return strings.Count(trimmed, "```") < 2
	}
	return !gjson.Valid(trimmed)
}
