package resws

import "context"

type (
	// MessageHandler turns one decoded inbound value into one element of the stream.
	MessageHandler[R any] func(v any) R

	// ReconnectHook runs after every successful reconnection, before any frame of the
	// new session is handled. It is not called on the first connection. A non-nil
	// error fails the new session and the hook runs again on the next one.
	ReconnectHook interface {
		OnReconnect(ctx context.Context) error
	}

	// Pinger is the keepalive task. Ping is started on its own goroutine once per
	// session and must return when ctx is cancelled, which happens when the session ends.
	Pinger interface {
		Ping(ctx context.Context)
	}

	ReconnectFunc func(ctx context.Context) error

	PingFunc func(ctx context.Context)
)

func (f ReconnectFunc) OnReconnect(ctx context.Context) error { return f(ctx) }

func (f PingFunc) Ping(ctx context.Context) { f(ctx) }

var (
	// NoopReconnectHook does nothing and never fails.
	NoopReconnectHook ReconnectHook = ReconnectFunc(func(context.Context) error { return nil })

	// NoopPinger returns immediately; the session then lives without a keepalive task.
	NoopPinger Pinger = PingFunc(func(context.Context) {})
)
