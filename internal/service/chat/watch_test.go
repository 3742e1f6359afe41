package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/runtimetest"
)

func TestWatchDeliversCurrentThenLatest(t *testing.T) {
	fake := &runtimetest.Fake{}
	controller, _ := newReadyController(t, fake, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := controller.Watch(ctx)

	first := receive(t, updates)
	if first.Status != chat.StatusReady || first.Session.RuntimeThreadID != "thread-1" {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}

	if err := controller.Reset(context.Background()); err != nil {
		t.Fatalf("Reset err: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-updates:
			if s.Status == chat.StatusReady && s.Session.RuntimeThreadID == "thread-2" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the reset snapshot")
		}
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	controller, _ := newReadyController(t, &runtimetest.Fake{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	updates := controller.Watch(ctx)
	receive(t, updates)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel was not closed")
		}
	}
}

func receive(t *testing.T, updates <-chan chat.Snapshot) chat.Snapshot {
	t.Helper()
	select {
	case s, ok := <-updates:
		if !ok {
			t.Fatal("watch channel closed early")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
	}
	return chat.Snapshot{}
}
