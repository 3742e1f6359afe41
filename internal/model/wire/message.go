package wire

import (
	"encoding/json"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

// RawMessage is one untyped message record as the agent runtime serializes it:
// {id?, role|type?, name?, content, additional_kwargs?, response_metadata?}.
// The content may be a string, a list of mixed blocks or an object.
type RawMessage = json.RawMessage

// Message is a RawMessage after role resolution, text extraction, node
// attribution and payload extraction.
type Message struct {
	ID      string
	Role    chat.Role
	Content string
	Payload *chat.SupervisorPayload
	Node    string
	// PayloadFromText is set when the payload was parsed out of the message text,
	// in which case Content holds the rationale instead of the raw JSON.
	PayloadFromText bool
}

// Update is one streamed state-update event of a run.
type Update struct {
	// Node is the graph node that produced the update; empty for whole-state events.
	Node string
	// Final marks the closing event of a run; Messages then hold the full thread.
	Final    bool
	Messages []RawMessage
}
