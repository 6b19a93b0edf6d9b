package resws

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrReceiveTimeout    = errors.New("no frame received before the deadline")
	ErrConnectionRefused = errors.New("connection refused")
	ErrUnresolvedHost    = errors.New("endpoint host cannot be resolved")
	ErrClosedByPeer      = errors.New("connection closed by endpoint")
	ErrClosedAbnormally  = errors.New("connection closed abnormally")
	ErrCannotConnect     = errors.New("connection cannot be established")
	ErrRateLimit         = errors.New("rate limit exceeded")
	ErrTerminated        = errors.New("program exit")

	ErrNoConnection     = errors.New("no connection")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendFailed       = errors.New("failed to send message")
	ErrEncode           = errors.New("cannot encode message")
	ErrDecode           = errors.New("cannot decode message")

	ErrReconnectHook = errors.New("reconnect hook failed")
)

// Fault is the closed set of reasons a session cycle can end with.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultReceiveTimeout
	FaultRefused
	FaultUnresolvedHost
	FaultClosedByPeer
	FaultClosedAbnormally
	FaultCannotConnect
	FaultReconnectHook
	FaultCancelled
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultReceiveTimeout:
		return "receive timeout"
	case FaultRefused:
		return "connection refused"
	case FaultUnresolvedHost:
		return "unresolved host"
	case FaultClosedByPeer:
		return "closed by peer"
	case FaultClosedAbnormally:
		return "closed abnormally"
	case FaultCannotConnect:
		return "cannot connect"
	case FaultReconnectHook:
		return "reconnect hook"
	case FaultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClassifyFault maps an error returned by a Dialer, a Session or a hook onto a Fault.
// Anything it does not recognise is reported as FaultCannotConnect.
func ClassifyFault(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrTerminated),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return FaultCancelled
	case errors.Is(err, ErrReceiveTimeout):
		return FaultReceiveTimeout
	case errors.Is(err, ErrConnectionRefused):
		return FaultRefused
	case errors.Is(err, ErrUnresolvedHost):
		return FaultUnresolvedHost
	case errors.Is(err, ErrClosedByPeer):
		return FaultClosedByPeer
	case errors.Is(err, ErrClosedAbnormally):
		return FaultClosedAbnormally
	case errors.Is(err, ErrReconnectHook):
		return FaultReconnectHook
	default:
		return FaultCannotConnect
	}
}
