package resws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// step is one scripted outcome of fakeSession.Receive.
type step struct {
	frame []byte
	err   error
}

func textFrame(s string) step { return step{frame: []byte(s)} }

func failStep(err error) step { return step{err: errors.Wrap(err, "scripted")} }

// fakeSession replays scripted steps, then blocks until ctx is done or the session is closed.
type fakeSession struct {
	steps     chan step
	closed    chan struct{}
	closeOnce sync.Once
	open      atomic.Bool
	onClose   func()

	mu      sync.Mutex
	sent    [][]byte
	sendErr error
}

func newFakeSession(steps ...step) *fakeSession {
	s := &fakeSession{
		steps:  make(chan step, 64),
		closed: make(chan struct{}),
	}
	for _, st := range steps {
		s.steps <- st
	}
	s.open.Store(true)
	return s
}

func (s *fakeSession) push(st step) { s.steps <- st }

func (s *fakeSession) Receive(ctx context.Context, _ time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case st := <-s.steps:
		if st.err != nil {
			s.open.Store(false)
		}
		return st.frame, st.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, errors.Wrap(ErrClosedAbnormally, "session closed")
	}
}

func (s *fakeSession) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, append([]byte(nil), data...))
	return nil
}

func (s *fakeSession) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, bts := range s.sent {
		out = append(out, string(bts))
	}
	return out
}

func (s *fakeSession) IsOpen() bool { return s.open.Load() }

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() {
		s.open.Store(false)
		close(s.closed)
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

func (s *fakeSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// dialOutcome is one scripted result of fakeDialer.Dial.
type dialOutcome struct {
	session *fakeSession
	err     error
}

func dialOK(s *fakeSession) dialOutcome { return dialOutcome{session: s} }

func dialErr(err error) dialOutcome { return dialOutcome{err: errors.Wrap(err, "scripted dial")} }

// fakeDialer hands out scripted outcomes in order and refuses once they run out.
// It records when each dial happened and how many sessions were open at once.
type fakeDialer struct {
	mu       sync.Mutex
	outcomes []dialOutcome
	dials    []time.Time
	urls     []string
	open     int
	maxOpen  int
}

func newFakeDialer(outcomes ...dialOutcome) *fakeDialer {
	return &fakeDialer{outcomes: outcomes}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials = append(d.dials, time.Now())
	d.urls = append(d.urls, url)

	if len(d.outcomes) == 0 {
		return nil, errors.Wrap(ErrConnectionRefused, "nothing scripted")
	}
	out := d.outcomes[0]
	d.outcomes = d.outcomes[1:]

	if out.err != nil {
		return nil, out.err
	}

	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	out.session.onClose = func() {
		d.mu.Lock()
		d.open--
		d.mu.Unlock()
	}
	return out.session, nil
}

func (d *fakeDialer) Dials() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.dials...)
}

func (d *fakeDialer) MaxOpen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxOpen
}

type mockReconnectHook struct {
	mock.Mock

	tap func()
}

func (m *mockReconnectHook) OnReconnect(ctx context.Context) error {
	if m.tap != nil {
		m.tap()
	}
	args := m.Called(ctx)
	return args.Error(0)
}

// identity is the message handler used by most tests.
var identity MessageHandler[any] = func(v any) any { return v }
