package resws

import (
	"context"
	"iter"

	"github.com/codeGROOVE-dev/retry"
	"github.com/pkg/errors"
)

// loopState is owned by one running ConnectForever loop.
type loopState struct {
	// reconnect is set when the previous cycle ended abnormally, so the next
	// successful connect is a reconnection.
	reconnect bool
	// stop is the cause of a cooperative shutdown, nil while the loop goes on.
	stop error
}

// terminate records why the loop is stopping and keeps retry from trying again.
func (s *loopState) terminate(cause error) error {
	s.stop = cause
	return retry.Unrecoverable(cause)
}

// ConnectForever keeps c connected to its endpoint and returns the stream of
// onMessage results, one per decoded inbound frame, in arrival order.
//
// Each cycle dials, runs onReconnect when the cycle follows a failure, starts ping
// on its own goroutine, then reads frames until the transport fails. Frames that
// cannot be decoded are dropped. Any transport fault stops the keepalive task,
// releases the session and waits for the configured backoff before dialing again;
// there is no retry limit. Cancelling ctx or breaking out of the range loop is the
// only way to stop: the keepalive task is stopped, the session released and the
// stream ends.
//
// Nil hooks fall back to NoopReconnectHook and NoopPinger. Only one loop may run per
// Client at a time; a concurrent call yields nothing.
func ConnectForever[R any](
	ctx context.Context,
	c *Client,
	onMessage MessageHandler[R],
	onReconnect ReconnectHook,
	ping Pinger,
) iter.Seq[R] {
	if onReconnect == nil {
		onReconnect = NoopReconnectHook
	}
	if ping == nil {
		ping = NoopPinger
	}

	return func(yield func(R) bool) {
		logger := c.logger.WithField("type", "conn_supervisor")

		if !c.running.CompareAndSwap(false, true) {
			logger.Errorln("client is already connected by another loop")
			return
		}
		defer c.running.Store(false)

		var state loopState

		err := retry.Do(
			func() error {
				return runCycle(ctx, c, logger, &state, onMessage, onReconnect, ping, yield)
			},
			retry.Context(ctx),
			retry.UntilSucceeded(),
			retry.Delay(c.config.BackoffDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, _ error) {
				logger.WithField("attempt", n+1).Infof("retrying connection in %s", c.config.BackoffDelay)
			}),
		)

		if state.stop != nil {
			err = state.stop
		}
		if fault := ClassifyFault(err); fault != FaultCancelled && ctx.Err() == nil {
			logger.Errorf("connection loop stopped unexpectedly: %s", err)
		}

		logger.Infoln("disconnected from websocket")
		c.emitter.Emit(EventTerminate, Event{Type: EventTerminate, Fault: FaultCancelled, Err: err})
	}
}

// runCycle is one Connecting/Streaming pass. It always returns an error: a
// retryable fault, or an unrecoverable one once the loop has been cancelled.
func runCycle[R any](
	ctx context.Context,
	c *Client,
	logger Logger,
	state *loopState,
	onMessage MessageHandler[R],
	onReconnect ReconnectHook,
	ping Pinger,
	yield func(R) bool,
) error {
	if err := ctx.Err(); err != nil {
		return state.terminate(err)
	}

	sess, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return c.fail(ctx, logger, state, "", err)
	}

	s := c.openSession(sess)
	defer c.releaseSession(s)

	logger = logger.WithField("session", s.id)
	logger.Infoln("connected to websocket")
	c.emitter.Emit(EventConnect, Event{Type: EventConnect, SessionID: s.id})

	if state.reconnect {
		state.reconnect = false
		if err := onReconnect.OnReconnect(ctx); err != nil {
			return c.fail(ctx, logger, state, s.id, errors.Wrap(ErrReconnectHook, err.Error()))
		}
		c.emitter.Emit(EventReconnect, Event{Type: EventReconnect, SessionID: s.id})
	}

	keepAlive := startKeepAlive(ctx, ping)
	defer keepAlive.Stop()

	for {
		frame, err := s.Receive(ctx, c.config.ReceiveTimeout)
		if err != nil {
			return c.fail(ctx, logger, state, s.id, err)
		}

		v, err := c.codec.Decode(frame)
		if err != nil {
			logger.Debugf("not valid JSON - message: %s", frame)
			continue
		}

		if !yield(onMessage(v)) {
			return state.terminate(ErrTerminated)
		}
	}
}

// fail reports why a cycle ended and decides whether the loop goes on.
func (c *Client) fail(ctx context.Context, logger Logger, state *loopState, sessionID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return state.terminate(ctxErr)
	}

	state.reconnect = true

	fault := ClassifyFault(err)
	if fault == FaultCancelled {
		// Only ctx ends the loop; a collaborator's own deadline is a connect failure.
		fault = FaultCannotConnect
	}
	switch fault {
	case FaultReceiveTimeout:
		logger.Errorf("timeout error: no frame received within %s", c.config.ReceiveTimeout)
	case FaultRefused:
		logger.Errorln("nobody seems to listen to this endpoint, please check the URL")
	case FaultUnresolvedHost:
		logger.Errorf("socket error: endpoint host cannot be resolved: %s", err)
	case FaultClosedByPeer:
		logger.Errorln("connection was closed by endpoint")
	case FaultClosedAbnormally:
		logger.Errorf("connection was closed because of an error: %s", err)
	case FaultReconnectHook:
		logger.Errorf("%s", err)
	default:
		logger.Errorf("cannot connect: %s", err)
	}

	c.emitter.Emit(EventDisconnect, Event{
		Type:      EventDisconnect,
		SessionID: sessionID,
		Fault:     fault,
		Err:       err,
	})

	return err
}
