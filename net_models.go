package resws

import (
	"context"
	"time"
)

type (
	// Dialer opens sessions to an endpoint.
	// Errors wrap ErrConnectionRefused, ErrUnresolvedHost, ErrRateLimit or ErrCannotConnect,
	// unless ctx was cancelled, in which case ctx.Err() is returned.
	Dialer interface {
		Dial(ctx context.Context, url string) (Session, error)
	}

	// Session is one live transport connection.
	// Receive and Send may be called concurrently with each other; Send must be safe
	// for concurrent callers.
	Session interface {
		// Receive waits up to timeout for the next data frame. Errors wrap ErrReceiveTimeout,
		// ErrClosedByPeer or ErrClosedAbnormally, or are ctx errors when ctx is done.
		Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
		// Send writes one data frame. Errors wrap ErrSendFailed.
		Send(data []byte) error
		// IsOpen reports whether the session can still carry frames.
		IsOpen() bool
		// Close releases the session. It is safe to call more than once.
		Close() error
	}
)
