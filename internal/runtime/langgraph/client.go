// Package langgraph talks to a LangGraph-compatible agent server over its
// REST and SSE API.
package langgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
)

// ErrNoThreadID is returned when the server's thread record carries no usable identifier.
var ErrNoThreadID = errors.New("langgraph: unable to determine thread identifier")

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every request, including the whole body of a streamed run.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements runtime.Runtime against a LangGraph server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ runtime.Runtime = (*Client)(nil)

// NewClient creates a new LangGraph client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
	}
}

type userTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesInput struct {
	Messages []userTurn `json:"messages"`
}

// CreateThread allocates a new server-side thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/threads", map[string]any{})
	if err != nil {
		return "", err
	}

	thread := gjson.ParseBytes(body)
	for _, key := range []string{"thread_id", "id", "threadId"} {
		if id := strings.TrimSpace(thread.Get(key).String()); id != "" {
			return id, nil
		}
	}
	return "", ErrNoThreadID
}

// ResolveAssistant looks up the assistant registered for graphID. Servers accept
// a graph id wherever an assistant id is expected, so an empty search result
// falls back to graphID itself.
func (c *Client) ResolveAssistant(ctx context.Context, graphID string) (string, error) {
	if graphID == "" {
		graphID = runtime.DefaultGraphID
	}
	body, err := c.do(ctx, http.MethodPost, "/assistants/search", map[string]any{
		"graph_id": graphID,
		"limit":    1,
	})
	if err != nil {
		return "", err
	}

	if id := gjson.GetBytes(body, "0.assistant_id").String(); id != "" {
		return id, nil
	}
	return graphID, nil
}

// AppendUserTurn writes a user message into the thread state.
func (c *Client) AppendUserTurn(ctx context.Context, threadID, content string) error {
	_, err := c.do(ctx, http.MethodPost, threadPath(threadID, "/state"), map[string]any{
		"values": messagesInput{Messages: []userTurn{{Role: "user", Content: content}}},
	})
	return err
}

// RunAndWait runs the assistant on the current thread state and waits for it to finish.
func (c *Client) RunAndWait(ctx context.Context, threadID, assistantID string) error {
	body, err := c.do(ctx, http.MethodPost, threadPath(threadID, "/runs/wait"), map[string]any{
		"assistant_id": assistantID,
	})
	if err != nil {
		return err
	}
	if msg := gjson.GetBytes(body, "__error__.message"); msg.Exists() {
		return fmt.Errorf("langgraph: run failed: %s", msg.String())
	}
	return nil
}

// StreamRun starts a run with content as input and streams its updates and values.
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID, content string) (runtime.Stream, error) {
	payload, err := json.Marshal(map[string]any{
		"assistant_id": assistantID,
		"input":        messagesInput{Messages: []userTurn{{Role: "user", Content: content}}},
		"stream_mode":  []string{"updates", "values"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, threadPath(threadID, "/runs/stream"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("langgraph: request failed: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError(req, resp)
	}
	return newEventStream(resp.Body), nil
}

// FetchState returns the messages currently stored on the thread.
func (c *Client) FetchState(ctx context.Context, threadID string) ([]wire.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, threadPath(threadID, "/state"), nil)
	if err != nil {
		return nil, err
	}
	return rawMessages(gjson.GetBytes(body, "values.messages")), nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("langgraph: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, statusError(req, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("langgraph: failed to read response: %w", err)
	}
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("langgraph: invalid JSON from %s %s", method, path)
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return req, nil
}

func statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("langgraph: %s %s returned status %d: %s",
		req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusNotFound && strings.Contains(req.URL.Path, "/threads/") {
		return fmt.Errorf("%w: %v", runtime.ErrThreadNotFound, err)
	}
	return err
}

func threadPath(threadID, suffix string) string {
	return "/threads/" + url.PathEscape(threadID) + suffix
}

// rawMessages copies the elements of a messages array. A single message object
// is accepted as a one-element list.
func rawMessages(v gjson.Result) []wire.RawMessage {
	switch {
	case v.IsArray():
		items := v.Array()
		out := make([]wire.RawMessage, 0, len(items))
		for _, item := range items {
			if item.IsObject() {
				out = append(out, wire.RawMessage(item.Raw))
			}
		}
		return out
	case v.IsObject():
		return []wire.RawMessage{wire.RawMessage(v.Raw)}
	}
	return nil
}
