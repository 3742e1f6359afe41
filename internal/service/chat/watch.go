package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

// Watch delivers the current snapshot followed by later transitions until ctx
// is done, then closes the channel. A slow reader skips intermediate
// snapshots and always receives the newest one.
func (c *Controller) Watch(ctx context.Context) <-chan chat.Snapshot {
	out := make(chan chat.Snapshot)
	notify := make(chan struct{}, 1)

	var (
		mu     sync.Mutex
		latest chat.Snapshot
		dirty  bool
	)
	signal := func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	}

	unsubscribe := c.Subscribe(func(s chat.Snapshot) {
		mu.Lock()
		latest = s
		dirty = true
		mu.Unlock()
		signal()
	})

	mu.Lock()
	if !dirty {
		latest = c.Snapshot()
		dirty = true
	}
	mu.Unlock()
	signal()

	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-notify:
			}

			mu.Lock()
			next, ok := latest, dirty
			dirty = false
			mu.Unlock()
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- next:
			}
		}
	}()
	return out
}
