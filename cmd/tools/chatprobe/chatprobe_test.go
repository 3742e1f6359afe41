package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/whats-eat/backend/internal/config"
	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/runtimetest"
)

const (
	placesPayload = `{"places":[{"id":"r1","displayName":{"text":"Ramen Bar"},"rating":4.6,"userRatingCount":1200,"priceLevel":"PRICE_LEVEL_MODERATE"}]}`
	humanTurn     = `{"id":"h1","type":"human","content":"Find ramen near me"}`
	cardReply     = `{"id":"a1","type":"ai","name":"summarizer_agent","content":"{\"cards\":[{\"place_id\":\"r1\",\"name\":\"Ramen Bar\"}],\"rationale\":\"One spot.\"}"}`
	chatter       = `{"id":"p1","type":"ai","name":"places_agent","content":"looking up places"}`
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), err
}

func TestNormalizeText(t *testing.T) {
	out, err := execute(t, placesPayload, "normalize")
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	for _, want := range []string{"Ramen Bar", "4.6 / 5 · 1,200 reviews", "Moderate"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNormalizeStructured(t *testing.T) {
	out, err := execute(t, placesPayload, "normalize", "--format", "json")
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	var got chat.SupervisorPayload
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(got.Cards) != 1 || got.Cards[0].PlaceID != "r1" {
		t.Fatalf("unexpected payload %+v", got)
	}

	out, err = execute(t, placesPayload, "normalize", "-f", "yaml")
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	var fromYAML chat.SupervisorPayload
	if err := yaml.Unmarshal([]byte(out), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(fromYAML.Cards) != 1 || fromYAML.Cards[0].Name != "Ramen Bar" {
		t.Fatalf("unexpected yaml payload %+v", fromYAML)
	}
}

func TestNormalizeRejects(t *testing.T) {
	if _, err := execute(t, `{"hello":"world"}`, "normalize"); err == nil {
		t.Fatal("expected error for input without cards")
	}
	if _, err := execute(t, placesPayload, "normalize", "--format", "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDecode(t *testing.T) {
	state := `{"values":{"messages":[` + humanTurn + `,` + chatter + `,` + cardReply + `]}}`
	out, err := execute(t, state, "decode", "--format", "json")
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	var messages []chat.Message
	if err := json.Unmarshal([]byte(out), &messages); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user + summarizer messages, got %d", len(messages))
	}
	if messages[1].Content != "One spot." || messages[1].Payload == nil {
		t.Fatalf("unexpected reply %+v", messages[1])
	}
}

func TestWireMessages(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: `[` + humanTurn + `]`, want: 1},
		{input: `{"messages":[` + humanTurn + `,` + cardReply + `]}`, want: 2},
		{input: `{"values":{"messages":[]}}`, want: 0},
		{input: `{"values":{}}`, wantErr: true},
		{input: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := wireMessages([]byte(tt.input))
		if (err != nil) != tt.wantErr {
			t.Fatalf("wireMessages(%s) err = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if len(got) != tt.want {
			t.Fatalf("wireMessages(%s) = %d messages, want %d", tt.input, len(got), tt.want)
		}
	}
}

func TestRunChat(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	rtCfg := config.RuntimeConfig{GraphID: "agent", SummarizerNode: "summarizer_agent"}
	opts := chatOptions{messages: []string{"Find ramen near me"}, format: formatText}
	if err := runChat(context.Background(), cmd, fake, rtCfg, nil, opts); err != nil {
		t.Fatalf("runChat err: %v", err)
	}

	if !strings.Contains(stdout.String(), "Ramen Bar") {
		t.Fatalf("transcript missing card:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Ready") {
		t.Fatalf("status output missing Ready:\n%s", stderr.String())
	}
	if turns := fake.Turns(); len(turns) != 1 || turns[0] != "Find ramen near me" {
		t.Fatalf("unexpected turns %v", turns)
	}
}

func TestRunChatFromStdin(t *testing.T) {
	fake := &runtimetest.Fake{State: runtimetest.Messages(humanTurn, cardReply)}
	cmd := &cobra.Command{}
	var stdout bytes.Buffer
	cmd.SetIn(strings.NewReader("first\n\n/reset\nsecond\n"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})

	rtCfg := config.RuntimeConfig{GraphID: "agent", SummarizerNode: "summarizer_agent"}
	if err := runChat(context.Background(), cmd, fake, rtCfg, nil, chatOptions{format: formatYAML}); err != nil {
		t.Fatalf("runChat err: %v", err)
	}
	if turns := fake.Turns(); len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %v", turns)
	}
	if fake.Threads() != 2 {
		t.Fatalf("expected /reset to open a second thread, got %d", fake.Threads())
	}
	if !strings.Contains(stdout.String(), "status: ready") {
		t.Fatalf("expected final yaml snapshot:\n%s", stdout.String())
	}
}
