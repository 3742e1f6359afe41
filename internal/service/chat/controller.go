package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
	"github.com/zhouzirui/whats-eat/backend/internal/transcript"
)

// Options configures a Controller.
type Options struct {
	// SessionID names the session; a random id is used when empty.
	SessionID string
	// Stream selects the streaming transport instead of run-and-wait polling.
	Stream bool
	// SummarizerNode is the graph node whose output is shown.
	SummarizerNode string
}

// Controller owns one chat session: its lifecycle state machine and its
// transcript. Every state or transcript change is published to subscribers
// before the method that caused it returns.
type Controller struct {
	rt         runtime.Runtime
	assistants *AssistantHandle
	builder    transcript.Builder
	stream     bool

	// publishMu orders transitions so subscribers see them one at a time.
	publishMu sync.Mutex

	mu         sync.Mutex
	session    chat.Session
	status     chat.Status
	messages   []chat.Message
	errMsg     string
	activeNode string

	listenersMu  sync.Mutex
	listeners    map[int]func(chat.Snapshot)
	nextListener int
}

// NewController creates a controller in the initializing state. Call
// Initialize before sending messages.
func NewController(rt runtime.Runtime, assistants *AssistantHandle, opts Options) *Controller {
	if assistants == nil {
		assistants = NewAssistantHandle("")
	}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	return &Controller{
		rt:         rt,
		assistants: assistants,
		builder:    transcript.NewBuilder(opts.SummarizerNode),
		stream:     opts.Stream,
		session:    chat.Session{ID: id, CreatedAt: time.Now().UTC()},
		status:     chat.StatusInitializing,
		listeners:  make(map[int]func(chat.Snapshot)),
	}
}

// ID returns the session id. It survives Reset.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every transition and returns a function that
// removes it. fn runs on the goroutine performing the transition and must not
// call back into Initialize, SendMessage or Reset.
func (c *Controller) Subscribe(fn func(chat.Snapshot)) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

// Initialize allocates a fresh runtime thread and resolves the assistant
// handle. On failure the session becomes unavailable and an *InitError is returned.
func (c *Controller) Initialize(ctx context.Context) error {
	c.begin(false)
	return c.connect(ctx)
}

// Reset discards the thread and transcript and initializes again. It is
// rejected with ErrNotReady while a turn is streaming.
func (c *Controller) Reset(ctx context.Context) error {
	if !c.begin(true) {
		return ErrNotReady
	}
	return c.connect(ctx)
}

// begin enters Initializing and clears the transcript. With guard set the
// transition is refused while a turn is streaming; the check and the state
// change happen under one lock acquisition.
func (c *Controller) begin(guard bool) bool {
	accepted := false
	c.transitionIf(func() bool {
		if guard && c.status == chat.StatusStreaming {
			return false
		}
		accepted = true
		c.status = chat.StatusInitializing
		c.errMsg = ""
		c.activeNode = ""
		c.messages = nil
		c.session.RuntimeThreadID = ""
		c.session.CreatedAt = time.Now().UTC()
		return true
	})
	return accepted
}

// connect allocates the thread and resolves the assistant handle.
func (c *Controller) connect(ctx context.Context) error {
	threadID, err := c.rt.CreateThread(ctx)
	if err != nil {
		return c.failInit(err)
	}
	if threadID == "" {
		return c.failInit(errors.New("runtime returned an empty thread id"))
	}

	assistantID, err := c.assistants.Resolve(ctx, c.rt)
	if err != nil {
		return c.failInit(err)
	}

	c.transition(func() {
		c.session.RuntimeThreadID = threadID
		c.session.RuntimeAssistantID = assistantID
		c.status = chat.StatusReady
	})
	log.Printf("[chat] session=%s ready thread=%s assistant=%s", c.ID(), threadID, assistantID)
	return nil
}

// SendMessage submits one user turn and blocks until the reply is complete.
// The user's text is echoed into the transcript before the runtime is contacted.
func (c *Controller) SendMessage(ctx context.Context, text string, hint *LocationHint) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	var (
		threadID    string
		assistantID string
		accepted    bool
	)
	c.transitionIf(func() bool {
		if c.status != chat.StatusReady {
			return false
		}
		accepted = true
		threadID = c.session.RuntimeThreadID
		assistantID = c.session.RuntimeAssistantID
		c.messages = append(c.messages, chat.Message{
			ID:      uuid.NewString(),
			Role:    chat.RoleUser,
			Content: text,
			State:   chat.MessageCommitted,
		})
		c.status = chat.StatusStreaming
		c.errMsg = ""
		c.activeNode = ""
		return true
	})
	if !accepted {
		return ErrNotReady
	}

	submitted := hint.Annotate(text)
	var err error
	if c.stream {
		err = c.streamTurn(ctx, threadID, assistantID, submitted)
	} else {
		err = c.pollTurn(ctx, threadID, assistantID, submitted)
	}
	if err != nil {
		return c.failTurn(err)
	}

	c.transition(func() {
		c.commitPending()
		c.status = chat.StatusReady
		c.activeNode = ""
	})
	return nil
}

// pollTurn appends the turn, waits for the run and rebuilds the transcript
// from the thread's full state.
func (c *Controller) pollTurn(ctx context.Context, threadID, assistantID, content string) error {
	if err := c.rt.AppendUserTurn(ctx, threadID, content); err != nil {
		return err
	}
	if err := c.rt.RunAndWait(ctx, threadID, assistantID); err != nil {
		return err
	}
	state, err := c.rt.FetchState(ctx, threadID)
	if err != nil {
		return err
	}

	messages := c.builder.Build(state)
	for i := range messages {
		if messages[i].Role == chat.RoleUser {
			messages[i].Content = StripAnnotation(messages[i].Content)
		}
	}
	c.transition(func() {
		c.messages = messages
	})
	return nil
}

// streamTurn consumes the run's updates in arrival order. Only summarizer and
// final updates can change the transcript; other nodes only move ActiveNode.
func (c *Controller) streamTurn(ctx context.Context, threadID, assistantID, content string) error {
	stream, err := c.rt.StreamRun(ctx, threadID, assistantID, content)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		update, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.applyUpdate(update)
	}
}

func (c *Controller) applyUpdate(update wire.Update) {
	if !update.Final && update.Node != c.builder.SummarizerNode {
		if update.Node == "" {
			return
		}
		c.transition(func() {
			c.activeNode = update.Node
		})
		return
	}

	var visible []chat.Message
	if update.Final {
		visible = c.builder.Build(update.Messages)
	} else {
		visible = c.builder.BuildAttributed(update.Node, update.Messages)
	}
	reply, ok := transcript.LatestReply(visible)
	if !ok {
		return
	}

	c.transition(func() {
		c.upsertPending(reply)
		if !update.Final {
			c.activeNode = update.Node
		}
	})
}

// upsertPending replaces the streaming placeholder with reply, or appends it.
// Must be called with c.mu held.
func (c *Controller) upsertPending(reply chat.Message) {
	reply.ID = chat.PendingAssistantID
	reply.Role = chat.RoleAssistant
	reply.State = chat.MessagePending
	for i := range c.messages {
		if c.messages[i].Pending() {
			c.messages[i] = reply
			return
		}
	}
	c.messages = append(c.messages, reply)
}

// commitPending gives the placeholder a permanent id. Must be called with c.mu held.
func (c *Controller) commitPending() {
	for i := range c.messages {
		if c.messages[i].Pending() {
			c.messages[i].ID = uuid.NewString()
			c.messages[i].State = chat.MessageCommitted
		}
	}
}

// dropPending removes an unfinished placeholder. Must be called with c.mu held.
func (c *Controller) dropPending() {
	kept := c.messages[:0]
	for _, msg := range c.messages {
		if !msg.Pending() {
			kept = append(kept, msg)
		}
	}
	c.messages = kept
}

func (c *Controller) failInit(err error) error {
	initErr := &InitError{Err: err}
	log.Printf("[chat] session=%s initialization failed: %v", c.ID(), err)
	c.transition(func() {
		c.status = chat.StatusUnavailable
		c.errMsg = initErr.Error()
		c.activeNode = ""
	})
	return initErr
}

func (c *Controller) failTurn(err error) error {
	turnErr := &TurnError{Err: err}
	log.Printf("[chat] session=%s turn failed: %v", c.ID(), err)
	c.transition(func() {
		c.dropPending()
		c.status = chat.StatusUnavailable
		c.errMsg = turnErr.Error()
		c.activeNode = ""
	})
	return turnErr
}

func (c *Controller) transition(mutate func()) {
	c.transitionIf(func() bool {
		mutate()
		return true
	})
}

// transitionIf applies mutate under the state lock and, when it reports a
// change, publishes the resulting snapshot before returning.
func (c *Controller) transitionIf(mutate func() bool) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	changed := mutate()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if !changed {
		return
	}

	c.listenersMu.Lock()
	listeners := make([]func(chat.Snapshot), 0, len(c.listeners))
	for id := 0; id < c.nextListener; id++ {
		if fn, ok := c.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (c *Controller) snapshotLocked() chat.Snapshot {
	return chat.Snapshot{
		Session:    c.session,
		Status:     c.status,
		Messages:   transcript.Present(c.messages),
		Error:      c.errMsg,
		ActiveNode: c.activeNode,
		Streaming:  c.status == chat.StatusStreaming,
	}
}
