package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/runtimetest"
	chatService "github.com/zhouzirui/whats-eat/backend/internal/service/chat"
)

const (
	humanTurn = `{"id":"h1","type":"human","content":"Find ramen near me"}`
	cardReply = `{"id":"a1","type":"ai","name":"summarizer_agent","content":"{\"cards\":[{\"place_id\":\"r1\",\"name\":\"Ramen Bar\"}],\"rationale\":\"One spot.\"}"}`
)

func setupRouter(fake *runtimetest.Fake) (*chi.Mux, *chatService.Service) {
	chatSvc := chatService.NewService(fake, chatService.NewAssistantHandle("agent"), chatService.Options{
		SummarizerNode: "summarizer_agent",
	})
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeSnapshot(t *testing.T, resp *httptest.ResponseRecorder) chat.Snapshot {
	t.Helper()
	var snapshot chat.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snapshot
}

func createSession(t *testing.T, r http.Handler) chat.Snapshot {
	t.Helper()
	resp := do(r, http.MethodPost, "/sessions", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	return decodeSnapshot(t, resp)
}

func TestCreateSession(t *testing.T) {
	r, chatSvc := setupRouter(&runtimetest.Fake{})

	snapshot := createSession(t, r)
	if snapshot.Status != chat.StatusReady {
		t.Fatalf("expected ready, got %s", snapshot.Status)
	}
	if snapshot.Session.ID == "" || snapshot.Session.RuntimeThreadID != "thread-1" {
		t.Fatalf("unexpected session: %+v", snapshot.Session)
	}
	if chatSvc.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", chatSvc.Len())
	}
}

func TestCreateSessionInitFailure(t *testing.T) {
	r, _ := setupRouter(&runtimetest.Fake{CreateThreadErr: errors.New("connection refused")})

	resp := do(r, http.MethodPost, "/sessions", nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	snapshot := decodeSnapshot(t, resp)
	if snapshot.Status != chat.StatusUnavailable || snapshot.Error == "" {
		t.Fatalf("expected unavailable snapshot with error, got %+v", snapshot)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(&runtimetest.Fake{})

	resp := do(r, http.MethodGet, "/sessions/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessage(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	r, _ := setupRouter(fake)
	created := createSession(t, r)

	resp := do(r, http.MethodPost, fmt.Sprintf("/sessions/%s/messages", created.Session.ID), SendRequest{
		Content: "Find ramen near me",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	snapshot := decodeSnapshot(t, resp)
	if snapshot.Status != chat.StatusReady {
		t.Fatalf("expected ready, got %s", snapshot.Status)
	}
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(snapshot.Messages))
	}
	reply := snapshot.Messages[1]
	if reply.Payload == nil || len(reply.Payload.Cards) != 1 || reply.Payload.Cards[0].Name != "Ramen Bar" {
		t.Fatalf("unexpected reply payload: %+v", reply.Payload)
	}
}

func TestSendMessageWithLocation(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	r, _ := setupRouter(fake)
	created := createSession(t, r)

	resp := do(r, http.MethodPost, fmt.Sprintf("/sessions/%s/messages", created.Session.ID), map[string]any{
		"content":  "Find ramen near me",
		"location": map[string]any{"latitude": 37.5, "longitude": -122.25, "source": "browser"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	turns := fake.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	want := "Find ramen near me\n\n(User location: latitude=37.500000, longitude=-122.250000, source=browser)"
	if turns[0] != want {
		t.Fatalf("unexpected submitted turn %q", turns[0])
	}
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name   string
		fake   *runtimetest.Fake
		body   any
		status int
	}{
		{name: "empty", fake: &runtimetest.Fake{}, body: SendRequest{Content: "   "}, status: http.StatusBadRequest},
		{name: "turn failure", fake: &runtimetest.Fake{RunErr: errors.New("run exploded")}, body: SendRequest{Content: "hi"}, status: http.StatusBadGateway},
		{name: "invalid body", fake: &runtimetest.Fake{}, body: "not an object", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupRouter(tt.fake)
			created := createSession(t, r)

			resp := do(r, http.MethodPost, fmt.Sprintf("/sessions/%s/messages", created.Session.ID), tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestSendMessageNotReady(t *testing.T) {
	r, _ := setupRouter(&runtimetest.Fake{ResolveErr: errors.New("no assistant")})

	resp := do(r, http.MethodPost, "/sessions", nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	created := decodeSnapshot(t, resp)

	resp = do(r, http.MethodPost, fmt.Sprintf("/sessions/%s/messages", created.Session.ID), SendRequest{Content: "hi"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestResetSession(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	r, _ := setupRouter(fake)
	created := createSession(t, r)
	path := fmt.Sprintf("/sessions/%s", created.Session.ID)

	if resp := do(r, http.MethodPost, path+"/messages", SendRequest{Content: "ramen"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp := do(r, http.MethodPost, path+"/reset", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	snapshot := decodeSnapshot(t, resp)
	if len(snapshot.Messages) != 0 {
		t.Fatalf("expected empty transcript after reset, got %d", len(snapshot.Messages))
	}
	if snapshot.Session.ID != created.Session.ID {
		t.Fatalf("session id changed across reset: %s -> %s", created.Session.ID, snapshot.Session.ID)
	}
	if snapshot.Session.RuntimeThreadID != "thread-2" {
		t.Fatalf("expected a fresh thread, got %s", snapshot.Session.RuntimeThreadID)
	}
}

func TestDeleteSession(t *testing.T) {
	r, chatSvc := setupRouter(&runtimetest.Fake{})
	created := createSession(t, r)
	path := "/sessions/" + created.Session.ID

	if resp := do(r, http.MethodDelete, path, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if chatSvc.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", chatSvc.Len())
	}
	if resp := do(r, http.MethodDelete, path, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chatService.ErrEmptyMessage, http.StatusBadRequest},
		{chatService.ErrNotReady, http.StatusConflict},
		{chatService.ErrSessionNotFound, http.StatusNotFound},
		{&chatService.InitError{Err: errors.New("x")}, http.StatusServiceUnavailable},
		{&chatService.TurnError{Err: errors.New("x")}, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
