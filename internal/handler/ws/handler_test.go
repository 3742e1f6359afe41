package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/runtimetest"
	chatService "github.com/zhouzirui/whats-eat/backend/internal/service/chat"
)

const (
	humanTurn = `{"id":"h1","type":"human","content":"Find ramen near me"}`
	cardReply = `{"id":"a1","type":"ai","name":"summarizer_agent","content":"{\"cards\":[{\"place_id\":\"r1\",\"name\":\"Ramen Bar\"}]}"}`
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T, fake *runtimetest.Fake) (*websocket.Conn, *chatService.Controller) {
	t.Helper()
	chatSvc := chatService.NewService(fake, chatService.NewAssistantHandle("agent"), chatService.Options{
		SummarizerNode: "summarizer_agent",
	})
	controller, err := chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + controller.ID()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, controller
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestSnapshotOnConnect(t *testing.T) {
	conn, controller := dial(t, &runtimetest.Fake{})

	f := readFrame(t, conn)
	if f.Type != "snapshot" || f.SessionID != controller.ID() {
		t.Fatalf("unexpected frame: %+v", f)
	}
	var snapshot chat.Snapshot
	if err := json.Unmarshal(f.Data, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Status != chat.StatusReady {
		t.Fatalf("expected ready, got %s", snapshot.Status)
	}
}

func TestSendCommand(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	conn, _ := dial(t, fake)
	readFrame(t, conn)

	err := conn.WriteJSON(map[string]any{
		"type": "send",
		"data": map[string]any{"content": "Find ramen near me"},
	})
	if err != nil {
		t.Fatalf("write send: %v", err)
	}

	for {
		f := readFrame(t, conn)
		if f.Type != "snapshot" {
			t.Fatalf("unexpected frame: %+v", f)
		}
		var snapshot chat.Snapshot
		if err := json.Unmarshal(f.Data, &snapshot); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snapshot.Status == chat.StatusReady && len(snapshot.Messages) == 2 {
			if snapshot.Messages[1].Payload == nil {
				t.Fatalf("expected a payload on the reply")
			}
			return
		}
	}
}

func TestUnsupportedCommand(t *testing.T) {
	conn, _ := dial(t, &runtimetest.Fake{})
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "audio"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != "error" || !strings.Contains(string(f.Data), "unsupported message type: audio") {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestSessionMismatch(t *testing.T) {
	conn, _ := dial(t, &runtimetest.Fake{})
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "reset", "sessionId": "other"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != "error" || !strings.Contains(string(f.Data), "session mismatch") {
		t.Fatalf("unexpected frame: %+v", f)
	}
}
