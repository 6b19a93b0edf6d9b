package resws

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNew_Defaults(t *testing.T) {
	c := New("ws://example.test", WithLogger(NopLogger()))

	assert.Equal(t, "ws://example.test", c.URL())
	assert.Equal(t, DefaultConfig(), c.Config())
	assert.IsType(t, JSONCodec{}, c.codec)
	assert.IsType(t, &WebsocketDialer{}, c.dialer)
	assert.False(t, c.Connected())
}

func TestNew_Overrides(t *testing.T) {
	c := New("ws://example.test",
		WithLogger(NopLogger()),
		WithConfig(Config{ReceiveTimeout: time.Minute}),
		WithBackoffDelay(500*time.Millisecond),
	)

	assert.Equal(t, Config{ReceiveTimeout: time.Minute, BackoffDelay: 500 * time.Millisecond}, c.Config())
}

func TestSend_NoConnection(t *testing.T) {
	d := newFakeDialer()
	c, logs := newTestClient(t, d)

	assert.NotPanics(t, func() {
		c.Send(map[string]any{"x": 1})
	})

	assert.Contains(t, logs.String(), "no connection")
	assert.ErrorIs(t, c.TrySend(map[string]any{"x": 1}), ErrNoConnection)
	assert.Empty(t, d.Dials())
}

func TestSend_WritesEncodedMessage(t *testing.T) {
	c, logs := newTestClient(t, newFakeDialer())
	s := newFakeSession()
	c.openSession(s)

	c.Send(map[string]any{"x": 1})

	assert.Equal(t, []string{`{"x":1}`}, s.Sent())
	assert.Empty(t, logs.String())
	assert.True(t, c.Connected())
}

func TestSend_ClosedSession(t *testing.T) {
	c, logs := newTestClient(t, newFakeDialer())
	s := newFakeSession()
	c.openSession(s)
	s.open.Store(false)

	c.Send(map[string]any{"x": 1})

	assert.Contains(t, logs.String(), "connection is closed")
	assert.Empty(t, s.Sent())
	assert.ErrorIs(t, c.TrySend("x"), ErrConnectionClosed)
}

func TestSend_WriteFailureIsLogged(t *testing.T) {
	c, logs := newTestClient(t, newFakeDialer())
	s := newFakeSession()
	s.sendErr = errors.New("broken pipe")
	c.openSession(s)

	c.Send(map[string]any{"x": 1})

	out := logs.String()
	assert.Contains(t, out, "failed to send message. Reason:")
	assert.Contains(t, out, "broken pipe")
	assert.ErrorIs(t, c.TrySend("x"), ErrSendFailed)
}

func TestSend_EncodeFailureIsLogged(t *testing.T) {
	c, logs := newTestClient(t, newFakeDialer())
	s := newFakeSession()
	c.openSession(s)

	c.Send(make(chan int))

	assert.Contains(t, logs.String(), "failed to encode message")
	assert.Empty(t, s.Sent())
	assert.ErrorIs(t, c.TrySend(func() {}), ErrEncode)
}

func TestSend_RateLimited(t *testing.T) {
	c, logs := newTestClient(t, newFakeDialer(), WithSendLimit(rate.Every(time.Hour), 1))
	s := newFakeSession()
	c.openSession(s)

	c.Send("first")
	c.Send("second")

	assert.Equal(t, []string{`"first"`}, s.Sent())
	assert.Contains(t, logs.String(), "send rate limit exceeded, dropping message")
}

func TestReleaseSession_ClearsSlot(t *testing.T) {
	c, _ := newTestClient(t, newFakeDialer())
	s := newFakeSession()
	as := c.openSession(s)
	require.True(t, c.Connected())

	c.releaseSession(as)

	assert.True(t, s.isClosed())
	assert.False(t, c.Connected())
	assert.ErrorIs(t, c.TrySend("x"), ErrNoConnection)
}

func TestReleaseSession_KeepsNewerSession(t *testing.T) {
	c, _ := newTestClient(t, newFakeDialer())
	old := c.openSession(newFakeSession())
	current := newFakeSession()
	c.openSession(current)

	c.releaseSession(old)

	assert.True(t, c.Connected())
	require.NoError(t, c.TrySend("x"))
	assert.Equal(t, []string{`"x"`}, current.Sent())
}
