package chat

// Role identifies who authored a visible turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageState distinguishes the single in-flight assistant reply from settled turns.
type MessageState int

const (
	MessageCommitted MessageState = iota
	MessagePending
)

func (s MessageState) String() string {
	if s == MessagePending {
		return "pending"
	}
	return "committed"
}

// MarshalText renders the state as "pending"/"committed" in JSON.
func (s MessageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the values produced by MarshalText.
func (s *MessageState) UnmarshalText(text []byte) error {
	if string(text) == "pending" {
		*s = MessagePending
	} else {
		*s = MessageCommitted
	}
	return nil
}

// PendingAssistantID is reserved for the streaming placeholder. Only one message
// in a transcript may carry it.
const PendingAssistantID = "assistant-pending"

// Message is one visible turn of the conversation.
type Message struct {
	ID      string             `json:"id" yaml:"id"`
	Role    Role               `json:"role" yaml:"role"`
	Content string             `json:"content" yaml:"content"`
	Payload *SupervisorPayload `json:"payload,omitempty" yaml:"payload,omitempty"`
	Node    string             `json:"node,omitempty" yaml:"node,omitempty"`
	State   MessageState       `json:"state" yaml:"state"`
}

// Pending reports whether m is the streaming placeholder.
func (m Message) Pending() bool {
	return m.State == MessagePending
}

// Visible reports whether the message has anything to show.
func (m Message) Visible() bool {
	return m.Content != "" || m.Payload != nil
}
