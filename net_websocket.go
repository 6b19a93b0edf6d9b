package resws

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = time.Second
)

type (
	// WebsocketDialer is the default Dialer, backed by fasthttp/websocket.
	WebsocketDialer struct {
		dialer       *websocket.Dialer
		header       http.Header
		writeTimeout time.Duration
		logger       Logger
	}

	// wsSession is a Session over one websocket connection.
	wsSession struct {
		conn         *websocket.Conn
		logger       Logger
		writeTimeout time.Duration
		writeMu      sync.Mutex
		open         atomic.Bool
		closeOnce    sync.Once
		closeErr     error
	}
)

// NewWebsocketDialer builds a WebsocketDialer. A nil dialer gets a handshake timeout
// and no proxy; header is sent with every handshake and may be nil.
func NewWebsocketDialer(dialer *websocket.Dialer, header http.Header) *WebsocketDialer {
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	}
	return &WebsocketDialer{
		dialer:       dialer,
		header:       header,
		writeTimeout: defaultWriteTimeout,
		logger:       NopLogger(),
	}
}

// WithLogger returns a copy of the dialer reporting through logger.
func (d *WebsocketDialer) WithLogger(logger Logger) *WebsocketDialer {
	cp := *d
	cp.logger = logger.WithField("net", "ws_connection")
	return &cp
}

// WithWriteTimeout returns a copy of the dialer using timeout as the per-frame write deadline.
func (d *WebsocketDialer) WithWriteTimeout(timeout time.Duration) *WebsocketDialer {
	cp := *d
	cp.writeTimeout = timeout
	return &cp
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Session, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		err = handleDialError(resp, err)
		d.logger.Debugf("connection err to %s: %s", url, err)
		return nil, err
	}

	d.logger.Debugf("success opening connection to %s", url)

	s := &wsSession{
		conn:         conn,
		logger:       d.logger,
		writeTimeout: d.writeTimeout,
	}
	s.open.Store(true)
	return s, nil
}

func (s *wsSession) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	_ = s.conn.SetReadDeadline(deadline)

	// Registered after the deadline above so a cancelled ctx always wins.
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		messageType, bts, err := s.conn.ReadMessage()
		if err != nil {
			s.open.Store(false)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, handleReadError(err)
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			s.logger.Debugf("<= [DATA] %s", bts)
			return bts, nil
		default:
			s.logger.Debugf("<= [%d] skipped", messageType)
		}
	}
}

func (s *wsSession) Send(data []byte) error {
	if !s.IsOpen() {
		return ErrConnectionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure,
		) || errors.Is(err, websocket.ErrCloseSent) {
			s.open.Store(false)
		}
		return errors.Wrap(ErrSendFailed, err.Error())
	}

	s.logger.Debugf("=> [DATA] %s", data)
	return nil
}

func (s *wsSession) IsOpen() bool {
	return s.open.Load()
}

func (s *wsSession) Close() error {
	s.closeOnce.Do(s.close)
	return s.closeErr
}

func (s *wsSession) close() {
	s.open.Store(false)

	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.writeTimeout),
	)
	s.writeMu.Unlock()

	s.closeErr = s.conn.Close()
}

func handleDialError(resp *http.Response, err error) error {
	// 1. Check HTTP errors first
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		var msg string
		if resp.Body != nil {
			if bts, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
				msg = string(bts)
			}
		}
		return errors.Wrap(ErrRateLimit, msg)
	}

	// 2. Network errors
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return errors.Wrap(ErrUnresolvedHost, err.Error())
	case errors.Is(err, syscall.ECONNREFUSED):
		return errors.Wrap(ErrConnectionRefused, err.Error())
	default:
		return errors.Wrap(ErrCannotConnect, err.Error())
	}
}

func handleReadError(err error) error {
	var netErr net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return errors.Wrap(ErrClosedByPeer, err.Error())
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrap(ErrReceiveTimeout, err.Error())
	default:
		return errors.Wrap(ErrClosedAbnormally, err.Error())
	}
}
