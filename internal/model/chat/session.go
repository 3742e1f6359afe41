package chat

import "time"

// Session binds a gateway session to the opaque handles issued by the agent runtime.
type Session struct {
	ID                 string    `json:"id"`
	RuntimeThreadID    string    `json:"runtimeThreadId,omitempty"`
	RuntimeAssistantID string    `json:"runtimeAssistantId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Status is the controller lifecycle state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusStreaming    Status = "streaming"
	StatusUnavailable  Status = "unavailable"
)

// Label returns the short human label shown next to the input form.
func (s Status) Label() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming"
	case StatusUnavailable:
		return "Unavailable"
	default:
		return "Connecting"
	}
}

// Snapshot is what subscribers receive on every transition.
type Snapshot struct {
	Session    Session   `json:"session"`
	Status     Status    `json:"status"`
	Messages   []Message `json:"messages"`
	Error      string    `json:"error,omitempty"`
	ActiveNode string    `json:"activeNode,omitempty"`
	Streaming  bool      `json:"isStreaming"`
}
