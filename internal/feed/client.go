package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spglobal/priceservice/internal/price"
)

// Client is a single WebSocket connection to an upstream quote stream.
// Unlike a generic message pipe, it decodes every frame into a
// price.Record at the connection boundary: a malformed or invalid
// frame is logged and dropped inside the read loop and never reaches
// Quotes(), so callers never see a parse failure.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Quotes() <-chan price.Record
	Errors() <-chan error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	URL          string
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// quoteFrame is the wire shape of one upstream quote.
type quoteFrame struct {
	InstrumentID string         `json:"instrument_id"`
	AsOf         time.Time      `json:"as_of"`
	Payload      map[string]any `json:"payload"`
}

type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	quotes chan price.Record
	errors chan error
	done   chan struct{}

	mu         sync.RWMutex
	lastPingAt time.Time
	closed     bool
}

// NewClient creates a new upstream WebSocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1000
	}
	return &client{
		cfg:    cfg,
		logger: logger,
		quotes: make(chan price.Record, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

var errAlreadyClosed = fmt.Errorf("feed: client already closed")

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("feed connected", "url", c.cfg.URL)
	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}

func (c *client) Quotes() <-chan price.Record { return c.quotes }
func (c *client) Errors() <-chan error        { return c.errors }

// readLoop reads frames off the wire, decodes each into a price.Record,
// and forwards only the ones that parse and validate. A full quotes
// buffer drops the newest frame rather than blocking the socket read.
func (c *client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errors <- err:
				default:
				}
				return
			}
		}

		rec, ok := c.decode(data, receivedAt)
		if !ok {
			continue
		}

		select {
		case c.quotes <- rec:
		case <-c.done:
			return
		default:
			c.logger.Warn("quote buffer full, dropping quote", "instrument_id", rec.InstrumentID())
		}
	}
}

// decode parses one wire frame into a price.Record, falling back to
// the local receipt time when the frame carries no as-of timestamp.
// A frame that fails to parse or fails record validation is logged
// and discarded; it never reaches Quotes().
func (c *client) decode(data []byte, receivedAt time.Time) (price.Record, bool) {
	var frame quoteFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn("discarding malformed quote frame", "error", err)
		return price.Record{}, false
	}

	asOf := frame.AsOf
	if asOf.IsZero() {
		asOf = receivedAt
	}

	rec, err := price.NewRecord(frame.InstrumentID, asOf, frame.Payload)
	if err != nil {
		c.logger.Warn("discarding invalid quote frame", "error", err)
		return price.Record{}, false
	}
	return rec, true
}

var errStaleConnection = fmt.Errorf("feed: connection stale, no ping received")

func (c *client) heartbeatLoop() {
	timeout := c.cfg.PingTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if time.Since(lastPing) > timeout {
				select {
				case c.errors <- errStaleConnection:
				default:
				}
				return
			}
		}
	}
}
