package langgraph

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEReaderSplitsEvents(t *testing.T) {
	body := "event: updates\ndata: {\"a\":1}\n\n" +
		": comment\n\n" +
		"data: line one\ndata: line two\n\n" +
		"event: end"

	reader := newSSEReader(strings.NewReader(body))

	want := []sseEvent{
		{Name: "updates", Data: `{"a":1}`},
		{Data: "line one\nline two"},
		{Name: "end"},
	}
	for i, expected := range want {
		got, err := reader.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if got != expected {
			t.Fatalf("event %d: got %+v, want %+v", i, got, expected)
		}
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
