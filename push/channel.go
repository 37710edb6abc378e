// Package push consumes the server's persistent notification stream.
//
// The channel only reacts to connect and new_notification events; reconnect
// policy belongs to the caller, which observes the closed events channel and
// Err() after the read loop terminates.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"campuschat/models"
)

const (
	// EventConnected is emitted once the channel is authenticated and open.
	EventConnected EventType = "connect"
	// EventNotification carries one pushed notification.
	EventNotification EventType = "new_notification"
)

// EventType identifies push channel updates.
type EventType string

// Event carries push updates for the notification synchronizer.
type Event struct {
	Type         EventType
	Notification *models.Notification
}

// Conn is the subset of *websocket.Conn the channel reads from.
type Conn interface {
	ReadJSON(v any) error
	Close() error
}

// DialFunc opens the websocket connection. Injectable for tests.
type DialFunc func(ctx context.Context, rawURL string) (Conn, error)

func defaultDial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// frame is the wire shape of one pushed event.
type frame struct {
	Event        string               `json:"event"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Config configures a Channel.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:5000/socket".
	URL string
	// Token authenticates the connection at dial time.
	Token string
	// UserID identifies whose feed to stream.
	UserID string
	// Dial overrides the websocket dialer (tests).
	Dial DialFunc
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Dial == nil {
		c.Dial = defaultDial
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("push: URL is required")
	}
	if c.Token == "" {
		return errors.New("push: token is required")
	}
	if c.UserID == "" {
		return errors.New("push: user id is required")
	}
	return nil
}

// Channel is one live push connection delivering notification events.
type Channel struct {
	cfg Config

	events chan Event

	startOnce sync.Once
	stopOnce  sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conn    Conn
	readErr error
}

// NewChannel creates a channel with config defaults applied.
func NewChannel(config Config) (*Channel, error) {
	cfg := config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Channel{
		cfg:    cfg,
		events: make(chan Event, 128),
	}, nil
}

// Start dials the push endpoint and begins delivering events. The connect
// event is emitted after a successful dial. Start is idempotent; only the
// first call dials.
func (c *Channel) Start(ctx context.Context) error {
	var startErr error
	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(context.Background())

		conn, err := c.cfg.Dial(ctx, c.endpointURL())
		if err != nil {
			startErr = fmt.Errorf("dial push channel: %w", err)
			c.cancel()
			close(c.events)
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.emit(Event{Type: EventConnected})
		c.cfg.Logger.Info("push channel connected", "user_id", c.cfg.UserID)

		c.wg.Add(1)
		go c.readLoop(conn)
	})
	return startErr
}

// Stop tears the connection down and waits for the read loop to exit.
func (c *Channel) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		c.wg.Wait()
	})
}

// Events provides asynchronous push updates. The channel is closed when the
// read loop ends; check Err() afterwards to distinguish failure from Stop.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Err returns the terminal read error, if the loop ended on one.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *Channel) endpointURL() string {
	values := url.Values{}
	values.Set("token", c.cfg.Token)
	values.Set("userId", c.cfg.UserID)
	return c.cfg.URL + "?" + values.Encode()
}

func (c *Channel) readLoop(conn Conn) {
	defer c.wg.Done()
	defer close(c.events)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if c.ctx.Err() == nil {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
				c.cfg.Logger.Warn("push channel read failed", "error", err)
			}
			return
		}

		switch f.Event {
		case string(EventConnected):
			c.emit(Event{Type: EventConnected})
		case string(EventNotification):
			if f.Notification == nil {
				c.cfg.Logger.Warn("push frame missing notification body")
				continue
			}
			c.emit(Event{Type: EventNotification, Notification: f.Notification})
		default:
			c.cfg.Logger.Debug("ignoring unknown push event", "event", f.Event)
		}
	}
}

// emit blocks until the consumer takes the event or the channel is stopped.
// Notifications are deduplicated downstream, but never dropped here.
func (c *Channel) emit(event Event) {
	select {
	case c.events <- event:
	case <-c.ctx.Done():
	}
}
