package langgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
)

const maxEventSize = 8 << 20

// sseEvent is one dispatched server-sent event.
type sseEvent struct {
	Name string
	Data string
}

// sseReader splits a text/event-stream body into events.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)
	return &sseReader{scanner: scanner}
}

// Next returns the next event, or io.EOF when the body ends.
func (r *sseReader) Next() (sseEvent, error) {
	var (
		event   sseEvent
		data    []string
		pending bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if pending {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return sseEvent{}, fmt.Errorf("scanner error: %w", err)
	}
	if pending {
		event.Data = strings.Join(data, "\n")
		return event, nil
	}
	return sseEvent{}, io.EOF
}

// eventStream maps a run's "updates"/"values" events onto wire updates.
type eventStream struct {
	body   io.ReadCloser
	reader *sseReader
	queue  []wire.Update
	values []wire.RawMessage
	done   bool
}

func newEventStream(body io.ReadCloser) *eventStream {
	return &eventStream{body: body, reader: newSSEReader(body)}
}

// Recv returns the next update. The closing update is marked Final and carries
// the last full message list the server reported.
func (s *eventStream) Recv() (wire.Update, error) {
	for len(s.queue) == 0 {
		if s.done {
			return wire.Update{}, io.EOF
		}
		if err := s.advance(); err != nil {
			return wire.Update{}, err
		}
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

func (s *eventStream) advance() error {
	event, err := s.reader.Next()
	if errors.Is(err, io.EOF) {
		s.finish()
		return nil
	}
	if err != nil {
		return fmt.Errorf("langgraph: stream interrupted: %w", err)
	}

	// Subgraph events are named "updates|<namespace>".
	name, _, _ := strings.Cut(event.Name, "|")
	switch name {
	case "updates":
		data := gjson.Parse(event.Data)
		data.ForEach(func(node, value gjson.Result) bool {
			if strings.HasPrefix(node.String(), "__") {
				return true
			}
			s.queue = append(s.queue, wire.Update{
				Node:     node.String(),
				Messages: rawMessages(value.Get("messages")),
			})
			return true
		})
	case "values":
		if messages := gjson.Get(event.Data, "messages"); messages.Exists() {
			s.values = rawMessages(messages)
		}
	case "end":
		s.finish()
	case "error":
		s.done = true
		message := gjson.Get(event.Data, "message").String()
		if message == "" {
			message = strings.TrimSpace(event.Data)
		}
		return fmt.Errorf("langgraph: run failed: %s", message)
	}
	return nil
}

func (s *eventStream) finish() {
	if s.done {
		return
	}
	s.done = true
	if s.values != nil {
		s.queue = append(s.queue, wire.Update{Final: true, Messages: s.values})
	}
}

// Close releases the response body.
func (s *eventStream) Close() error {
	s.done = true
	return s.body.Close()
}
