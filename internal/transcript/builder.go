package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/payload"
)

// DefaultSummarizerNode is the final stage of the recommendation graph.
const DefaultSummarizerNode = "summarizer_agent"

// Builder turns batches of raw runtime messages into visible chat turns.
type Builder struct {
	// SummarizerNode is the only node whose attributed assistant output is shown.
	SummarizerNode string
}

// NewBuilder returns a Builder for the given summarizer node, falling back to
// DefaultSummarizerNode.
func NewBuilder(summarizerNode string) Builder {
	if summarizerNode == "" {
		summarizerNode = DefaultSummarizerNode
	}
	return Builder{SummarizerNode: summarizerNode}
}

// Build decodes raws and returns the presented transcript.
func (b Builder) Build(raws []wire.RawMessage) []chat.Message {
	return b.BuildAttributed("", raws)
}

// BuildAttributed is Build for the messages of one streamed update: assistant
// messages that carry no node label inherit node.
func (b Builder) BuildAttributed(node string, raws []wire.RawMessage) []chat.Message {
	out := make([]chat.Message, 0, len(raws))
	index := make(map[string]int, len(raws))

	for i, raw := range raws {
		decoded, err := Decode(raw)
		if err != nil {
			continue
		}
		if decoded.Role == chat.RoleAssistant && decoded.Node == "" {
			decoded.Node = node
		}
		if !b.retain(decoded) {
			continue
		}

		msg := chat.Message{
			ID:      decoded.ID,
			Role:    decoded.Role,
			Content: decoded.Content,
			Payload: decoded.Payload,
			Node:    decoded.Node,
			State:   chat.MessageCommitted,
		}
		if msg.ID == "" {
			msg.ID = derivedID(i, raw)
		}

		// A re-emitted record replaces its earlier copy in place.
		if at, ok := index[msg.ID]; ok {
			out[at] = msg
			continue
		}
		index[msg.ID] = len(out)
		out = append(out, msg)
	}

	return Present(out)
}

func (b Builder) retain(m wire.Message) bool {
	switch m.Role {
	case chat.RoleUser:
		return true
	case chat.RoleAssistant:
		if m.Node != "" {
			return m.Node == b.summarizer()
		}
		return m.Payload != nil
	}
	return false
}

func (b Builder) summarizer() string {
	if b.SummarizerNode == "" {
		return DefaultSummarizerNode
	}
	return b.SummarizerNode
}

func derivedID(position int, raw wire.RawMessage) string {
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("msg-%d-%s", position, hex.EncodeToString(sum[:6]))
}

// Present applies the whole-transcript payload rules to msgs:
//   - consecutive assistant payloads with the same signature collapse into the later message;
//   - only the most recent payload keeps its cards;
//   - messages left with neither content nor payload are dropped.
//
// msgs is not modified and Present(Present(x)) == Present(x).
func Present(msgs []chat.Message) []chat.Message {
	collapsed := make([]chat.Message, 0, len(msgs))
	lastPayload := -1
	for _, msg := range msgs {
		if msg.Role == chat.RoleUser {
			lastPayload = -1
			collapsed = append(collapsed, msg)
			continue
		}
		if msg.Payload == nil {
			collapsed = append(collapsed, msg)
			continue
		}
		if lastPayload >= 0 && payload.Signature(collapsed[lastPayload].Payload) == payload.Signature(msg.Payload) {
			collapsed = append(collapsed[:lastPayload], collapsed[lastPayload+1:]...)
		}
		lastPayload = len(collapsed)
		collapsed = append(collapsed, msg)
	}

	latest := -1
	for i := len(collapsed) - 1; i >= 0; i-- {
		if collapsed[i].Role == chat.RoleAssistant && collapsed[i].Payload != nil {
			latest = i
			break
		}
	}

	out := make([]chat.Message, 0, len(collapsed))
	for i, msg := range collapsed {
		if i != latest {
			msg.Payload = nil
		}
		if !msg.Visible() {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// LatestReply folds the visible assistant messages that follow the last user
// turn in msgs into one reply: the newest non-empty content, the newest payload
// and the newest node. The id is taken from the newest message.
func LatestReply(msgs []chat.Message) (chat.Message, bool) {
	var (
		reply chat.Message
		found bool
	)
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == chat.RoleUser {
			break
		}
		if msg.Role != chat.RoleAssistant || !msg.Visible() {
			continue
		}
		if !found {
			reply = chat.Message{ID: msg.ID, Role: chat.RoleAssistant, Node: msg.Node, State: msg.State}
			found = true
		}
		if reply.Content == "" {
			reply.Content = msg.Content
		}
		if reply.Payload == nil {
			reply.Payload = msg.Payload
		}
	}
	return reply, found
}
