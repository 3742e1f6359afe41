// Package transcript decodes raw runtime messages and decides which of them
// become visible chat turns.
package transcript

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/payload"
)

// ErrNotConversational is returned for records that are not a user or assistant turn
// (system prompts, tool results, malformed JSON).
var ErrNotConversational = errors.New("transcript: not a conversational message")

// nodePaths lists where the origin node of an assistant message may be recorded.
// First match wins; the top-level name set on agent messages is the last resort.
var nodePaths = []string{
	"additional_kwargs.node",
	"additional_kwargs.langgraph_node",
	"additional_kwargs.sender",
	"additional_kwargs.metadata.node",
	"additional_kwargs.metadata.langgraph_node",
	"additional_kwargs.metadata.agent",
	"response_metadata.node",
	"response_metadata.langgraph_node",
	"response_metadata.sender",
	"response_metadata.metadata.node",
	"response_metadata.metadata.langgraph_node",
	"response_metadata.metadata.agent",
	"name",
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// Decode turns one raw runtime record into a typed message.
func Decode(raw wire.RawMessage) (wire.Message, error) {
	if !gjson.ValidBytes(raw) {
		return wire.Message{}, ErrNotConversational
	}
	record := gjson.ParseBytes(raw)
	if !record.IsObject() {
		return wire.Message{}, ErrNotConversational
	}

	role, ok := resolveRole(record)
	if !ok {
		return wire.Message{}, ErrNotConversational
	}

	msg := wire.Message{
		ID:      strings.TrimSpace(record.Get("id").String()),
		Role:    role,
		Content: extractText(record.Get("content")),
	}
	if role != chat.RoleAssistant {
		return msg, nil
	}

	msg.Node = resolveNode(record)
	msg.Payload, msg.PayloadFromText = extractPayload(record, msg.Content)
	if msg.PayloadFromText {
		msg.Content = textAfterPayload(msg.Payload, msg.Content)
	}
	return msg, nil
}

func resolveRole(record gjson.Result) (chat.Role, bool) {
	value := record.Get("role")
	if value.Type != gjson.String || strings.TrimSpace(value.Str) == "" {
		value = record.Get("type")
	}
	switch strings.ToLower(strings.TrimSpace(value.String())) {
	case "user", "human":
		return chat.RoleUser, true
	case "assistant", "ai":
		return chat.RoleAssistant, true
	}
	return "", false
}

// extractText flattens string, block-list and {text} content into prose.
// Blocks are joined with a blank line.
func extractText(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.Str
	case content.IsArray():
		var parts []string
		content.ForEach(func(_, block gjson.Result) bool {
			if block.Type == gjson.String {
				if block.Str != "" {
					parts = append(parts, block.Str)
				}
				return true
			}
			if !block.IsObject() {
				return true
			}
			if text := block.Get("text"); text.Type == gjson.String && text.Str != "" {
				parts = append(parts, text.Str)
			} else if output := block.Get("output"); output.Type == gjson.String && output.Str != "" {
				parts = append(parts, output.Str)
			}
			return true
		})
		return strings.Join(parts, "\n\n")
	case content.IsObject():
		if text := content.Get("text"); text.Type == gjson.String {
			return text.Str
		}
	}
	return ""
}

func resolveNode(record gjson.Result) string {
	for _, path := range nodePaths {
		if v := record.Get(path); v.Type == gjson.String {
			if node := strings.TrimSpace(v.Str); node != "" {
				return node
			}
		}
	}
	return ""
}

// extractPayload tries each payload location in precedence order. Candidates
// that do not normalize are skipped.
func extractPayload(record gjson.Result, text string) (*chat.SupervisorPayload, bool) {
	candidates := []gjson.Result{
		record.Get("additional_kwargs.structured_output"),
		record.Get("additional_kwargs.tool_invocation.output"),
		record.Get("response_metadata.structured"),
	}
	for _, candidate := range candidates {
		if p := normalizeCandidate(candidate); p != nil {
			return p, false
		}
	}

	if body, ok := jsonBody(text); ok {
		if p := payload.NormalizeJSON([]byte(body)); p != nil {
			return p, true
		}
	}
	return nil, false
}

func normalizeCandidate(candidate gjson.Result) *chat.SupervisorPayload {
	if !candidate.Exists() || candidate.Type == gjson.Null {
		return nil
	}
	// Tool outputs frequently arrive as serialized JSON strings.
	if candidate.Type == gjson.String {
		body, ok := jsonBody(candidate.Str)
		if !ok {
			return nil
		}
		return payload.NormalizeJSON([]byte(body))
	}
	return payload.NormalizeResult(candidate)
}

// jsonBody returns the JSON document held by text, unwrapping a fenced code block.
func jsonBody(text string) (string, bool) {
	body := strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	if body == "" || (body[0] != '{' && body[0] != '[') {
		return "", false
	}
	if !gjson.Valid(body) {
		return "", false
	}
	return body, true
}

// textAfterPayload is what remains to display once the JSON text became a payload:
// its rationale, else any prose around the fenced block.
func textAfterPayload(p *chat.SupervisorPayload, text string) string {
	if p.Rationale != "" {
		return p.Rationale
	}
	if !fencedBlock.MatchString(text) {
		return ""
	}
	return strings.TrimSpace(fencedBlock.ReplaceAllString(text, ""))
}
