package resws

import (
	"context"
	"sync"
	"time"
)

// KeepAliveMessageFactory builds the value sent by TickerPinger on every tick.
type KeepAliveMessageFactory func() any

// keepAliveTask runs one Pinger for the lifetime of one session.
type keepAliveTask struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// startKeepAlive spawns pinger on its own goroutine with a context derived from ctx.
func startKeepAlive(ctx context.Context, pinger Pinger) *keepAliveTask {
	ctx, cancel := context.WithCancel(ctx)
	t := &keepAliveTask{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		pinger.Ping(ctx)
	}()

	return t
}

// Stop cancels the task and waits for the pinger to return.
// It only executes once, subsequent calls have no effect.
func (t *keepAliveTask) Stop() {
	t.stopOnce.Do(func() {
		t.cancel()
		<-t.done
	})
}

// TickerPinger returns a Pinger that sends the value built by factory through c.Send
// every interval, until its context is cancelled.
func TickerPinger(c *Client, interval time.Duration, factory KeepAliveMessageFactory) Pinger {
	return PingFunc(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Send(factory())
			}
		}
	})
}
