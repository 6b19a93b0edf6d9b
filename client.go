package resws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type (
	// Client keeps one logical connection to a single endpoint alive. The connection
	// itself is driven by ConnectForever; Send may be called at any time from any goroutine.
	Client struct {
		url     string
		config  Config
		logger  Logger
		codec   Codec
		dialer  Dialer
		limiter *rate.Limiter

		// session is the currently open transport, nil when there is none.
		session   *activeSession
		sessionMu sync.RWMutex

		running atomic.Bool

		emitter *EventEmitterCallback[EventType, Event]
	}

	activeSession struct {
		Session
		id string
	}

	Option func(*Client)
)

func WithConfig(cfg Config) Option {
	return func(c *Client) { c.config = cfg }
}

func WithReceiveTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.config.ReceiveTimeout = timeout }
}

func WithBackoffDelay(delay time.Duration) Option {
	return func(c *Client) { c.config.BackoffDelay = delay }
}

func WithLogger(logger Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithCodec(codec Codec) Option {
	return func(c *Client) { c.codec = codec }
}

func WithDialer(dialer Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

// WithSendLimit caps outbound messages to limit per second with the given burst.
// Messages over the limit are dropped.
func WithSendLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// New creates a Client for url. The url is not validated: a malformed one shows up
// as a connect failure once ConnectForever runs.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		config:  DefaultConfig(),
		emitter: NewEventEmitter[EventType, Event](),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.config = c.config.withDefaults()
	if c.logger == nil {
		c.logger = defaultLogger()
	}
	c.logger = c.logger.WithField("url", url)
	if c.codec == nil {
		c.codec = JSONCodec{}
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(nil, nil).WithLogger(c.logger)
	}

	return c
}

func (c *Client) URL() string { return c.url }

func (c *Client) Config() Config { return c.config }

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	s := c.currentSession()
	return s != nil && s.IsOpen()
}

// On registers listener for the given lifecycle event. Listeners run on the
// goroutine consuming the stream and must not block.
func (c *Client) On(event EventType, listener func(Event)) {
	c.emitter.On(event, listener)
}

// Send encodes v and writes it on the current session. It never fails: every
// problem is logged and the message is dropped.
func (c *Client) Send(v any) {
	err := c.TrySend(v)

	switch {
	case err == nil:
	case errors.Is(err, ErrNoConnection):
		c.logger.Errorln("no connection")
	case errors.Is(err, ErrConnectionClosed):
		c.logger.Errorln("connection is closed")
	case errors.Is(err, ErrRateLimit):
		c.logger.Warnln("send rate limit exceeded, dropping message")
	case errors.Is(err, ErrEncode):
		c.logger.Errorf("failed to encode message. Reason: %s", err)
	default:
		c.logger.Errorf("failed to send message. Reason: %s", err)
	}
}

// TrySend behaves like Send but returns the outcome instead of logging it.
func (c *Client) TrySend(v any) error {
	s := c.currentSession()
	if s == nil {
		return ErrNoConnection
	}
	if !s.IsOpen() {
		return ErrConnectionClosed
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return ErrRateLimit
	}

	bts, err := c.codec.Encode(v)
	if err != nil {
		if !errors.Is(err, ErrEncode) {
			err = errors.Wrap(ErrEncode, err.Error())
		}
		return err
	}

	if err := s.Send(bts); err != nil {
		if errors.Is(err, ErrConnectionClosed) {
			return err
		}
		if !errors.Is(err, ErrSendFailed) {
			err = errors.Wrap(ErrSendFailed, err.Error())
		}
		return err
	}

	return nil
}

func (c *Client) currentSession() *activeSession {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.session
}

func (c *Client) openSession(s Session) *activeSession {
	as := &activeSession{Session: s, id: uuid.NewString()}

	c.sessionMu.Lock()
	c.session = as
	c.sessionMu.Unlock()

	return as
}

// releaseSession clears the session slot and closes the transport.
func (c *Client) releaseSession(as *activeSession) {
	c.sessionMu.Lock()
	if c.session == as {
		c.session = nil
	}
	c.sessionMu.Unlock()

	if err := as.Close(); err != nil {
		c.logger.WithField("session", as.id).Debugf("error closing session: %s", err)
	}
}
