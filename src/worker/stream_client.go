// Package worker holds client-side stream consumers.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
)

// StreamConn is the read side of one websocket connection.
type StreamConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

type DialFunc func(ctx context.Context, url string) (StreamConn, error)

// GorillaDial dials with the default gorilla websocket dialer.
func GorillaDial(ctx context.Context, url string) (StreamConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// StreamClient consumes the notification stream and republishes every frame
// into the hub. A dropped connection is retried at a fixed interval up to
// maxAttempts times; after that the client stays disconnected until Start is
// called again. Status transitions flow through hub.NotifyStatus.
type StreamClient struct {
	wg  *sync.WaitGroup
	url string
	hub *eventpubsub.Hub

	dial        DialFunc
	interval    time.Duration
	maxAttempts int

	mu     sync.Mutex
	conn   StreamConn
	closed bool
}

func NewStreamClient(wg *sync.WaitGroup, url string, hub *eventpubsub.Hub, dial DialFunc, interval time.Duration, maxAttempts int) *StreamClient {
	return &StreamClient{
		wg:          wg,
		url:         url,
		hub:         hub,
		dial:        dial,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

func (c *StreamClient) Start(ctx context.Context) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		c.run(ctx)
	}()
}

// Disconnect tears the connection down intentionally; no reconnect follows.
func (c *StreamClient) Disconnect() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Debugf("StreamClient:Disconnect(): close failed: %v", err)
		}
	}
}

func (c *StreamClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *StreamClient) run(ctx context.Context) {
	attempts := 0

	for {
		if c.isClosed() {
			return
		}

		conn, err := c.dial(ctx, c.url)
		if err != nil {
			attempts++
			log.Warnf("StreamClient:run(): connect attempt %d/%d failed: %v", attempts, c.maxAttempts, err)

			if attempts >= c.maxAttempts {
				log.Errorf("StreamClient:run(): giving up after %d attempts", attempts)
				c.hub.NotifyStatus(false)
				return
			}

			select {
			case <-time.After(c.interval):
				continue
			case <-ctx.Done():
				return
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		attempts = 0
		c.hub.NotifyStatus(true)

		c.readLoop(ctx, conn)

		c.hub.NotifyStatus(false)

		if c.isClosed() || ctx.Err() != nil {
			return
		}
	}
}

// readLoop pumps frames into the hub until the connection drops.
func (c *StreamClient) readLoop(ctx context.Context, conn StreamConn) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Warnf("StreamClient:readLoop(): read failed: %v", err)
			}
			return
		}

		var msg eventmodels.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Errorf("StreamClient:readLoop(): failed to parse frame: %v", err)
			continue
		}

		c.hub.Publish(msg)
	}
}
