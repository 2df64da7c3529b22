package queue

import (
	"fmt"
	"time"
)

// Heartbeat is a scoped resource that periodically calls Progress on a
// Context until Stop is called. Stop must be called on every exit path of
// the handler (success, error, or recovered panic) or the background
// ticker leaks.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
}

// StartProgressHeartbeat starts a background ticker that extends ctx's
// processing lease every interval. interval must be strictly less than
// ackWait; a ratio of roughly 1:3 is recommended so transient broker
// hiccups don't cause a spurious redelivery.
func (c *Context) StartProgressHeartbeat(interval, ackWait time.Duration) (*Heartbeat, error) {
	if interval <= 0 || interval >= ackWait {
		return nil, newError(KindStorage, "heartbeat", fmt.Errorf("heartbeat interval %s must be strictly less than ack_wait %s", interval, ackWait))
	}

	h := &Heartbeat{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				_ = c.Progress()
			}
		}
	}()

	return h, nil
}

// Stop halts the heartbeat's background ticker and waits for it to exit.
// Safe to call more than once.
func (h *Heartbeat) Stop() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.done
}
