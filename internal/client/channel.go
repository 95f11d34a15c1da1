package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/event"
)

// ErrChannel wraps dial, handshake and transport failures of the event channel.
var ErrChannel = errors.New("event channel error")

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	eventBuffer      = 64
)

// Conn is the client view of the event channel used by the controller.
type Conn interface {
	ID() string
	Send(eventType string, payload any) error
	Events() <-chan event.Envelope
}

// Channel 是客户端 websocket 事件通道，写入由互斥锁串行化。
type Channel struct {
	conn *websocket.Conn
	id   string

	writeMu sync.Mutex
	events  chan event.Envelope
	done    chan struct{}
	once    sync.Once

	errMu sync.Mutex
	err   error

	log *logrus.Entry
}

var _ Conn = (*Channel)(nil)

// Dial opens the channel and waits for the user-connected event carrying the connection id.
func Dial(ctx context.Context, url string, header http.Header) (*Channel, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrChannel, url, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(handshakeTimeout)
	}
	conn.SetReadDeadline(deadline)

	var env event.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: await %s: %v", ErrChannel, event.UserConnected, err)
	}
	var connected event.Connected
	if env.Type != event.UserConnected || env.Decode(&connected) != nil || connected.ConnectionID == "" {
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected first event %q", ErrChannel, env.Type)
	}
	conn.SetReadDeadline(time.Time{})

	c := &Channel{
		conn:   conn,
		id:     connected.ConnectionID,
		events: make(chan event.Envelope, eventBuffer),
		done:   make(chan struct{}),
		log:    logging.For("client").WithField("connection", connected.ConnectionID),
	}
	go c.readLoop()
	c.log.Info("connected")
	return c, nil
}

// ID returns the server-assigned connection id.
func (c *Channel) ID() string {
	return c.id
}

// Events delivers server events; the channel is closed when the connection ends.
func (c *Channel) Events() <-chan event.Envelope {
	return c.events
}

// Send encodes and writes one event.
func (c *Channel) Send(eventType string, payload any) error {
	env, err := event.New(eventType, c.id, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%w: send %s: %v", ErrChannel, eventType, err)
	}
	return nil
}

// Err reports why the read side stopped, nil after a normal close.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close sends a close frame and releases the connection.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) readLoop() {
	defer close(c.events)

	for {
		var env event.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.closed() {
				c.errMu.Lock()
				c.err = fmt.Errorf("%w: read: %v", ErrChannel, err)
				c.errMu.Unlock()
				c.log.WithError(err).Warn("read error")
			}
			return
		}

		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
