package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
)

// fakeConn serves queued frames; once drained it either drops immediately or
// stays open until closed.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	stayOpen bool
	done     chan struct{}
	once     sync.Once
}

func newFakeConn(stayOpen bool, frames ...[]byte) *fakeConn {
	return &fakeConn{
		frames:   frames,
		stayOpen: stayOpen,
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()

	if len(c.frames) > 0 {
		frame := c.frames[0]
		c.frames = c.frames[1:]
		c.mu.Unlock()

		return 1, frame, nil
	}

	stayOpen := c.stayOpen
	c.mu.Unlock()

	if stayOpen {
		<-c.done
	}

	return 0, nil, fmt.Errorf("connection reset")
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })

	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	attempts int
	conns    []*fakeConn
	failures int
}

func (d *fakeDialer) dial(ctx context.Context, url string) (StreamConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts++

	if d.failures > 0 {
		d.failures--
		return nil, fmt.Errorf("connection refused")
	}

	if len(d.conns) == 0 {
		return nil, fmt.Errorf("connection refused")
	}

	conn := d.conns[0]
	d.conns = d.conns[1:]

	return conn, nil
}

func (d *fakeDialer) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.attempts
}

func frame(t *testing.T, msgType string, payload interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(eventmodels.NewMessage(msgType, payload))
	require.NoError(t, err)

	return data
}

func waitFor(t *testing.T, condition func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func Test_StreamClient_Reconnect(t *testing.T) {
	t.Run("gives up after max attempts and stays disconnected", func(t *testing.T) {
		// arrange: more failures queued than the client will ever attempt
		dialer := &fakeDialer{failures: 6}
		hub := eventpubsub.NewHub()

		var wg sync.WaitGroup
		client := NewStreamClient(&wg, "ws://stream", hub, dialer.dial, time.Millisecond, 5)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// act
		client.Start(ctx)
		wg.Wait()

		// assert
		assert.Equal(t, 5, dialer.attemptCount())
		assert.False(t, hub.Connected())
	})

	t.Run("reconnects after a dropped connection and resets the attempt budget", func(t *testing.T) {
		// arrange: the first connection drops after one frame; the second
		// stays healthy
		first := newFakeConn(false, frame(t, "tick", "a"))
		second := newFakeConn(true, frame(t, "tick", "b"))
		dialer := &fakeDialer{conns: []*fakeConn{first, second}}

		hub := eventpubsub.NewHub()

		var received []interface{}
		var receivedMu sync.Mutex
		hub.Subscribe(func(msg eventmodels.Message) {
			receivedMu.Lock()
			defer receivedMu.Unlock()
			received = append(received, msg.Payload)
		}, nil)

		var wg sync.WaitGroup
		client := NewStreamClient(&wg, "ws://stream", hub, dialer.dial, time.Millisecond, 5)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// act
		client.Start(ctx)

		waitFor(t, func() bool {
			receivedMu.Lock()
			defer receivedMu.Unlock()
			return len(received) == 2
		}, "both frames")

		// assert
		receivedMu.Lock()
		assert.Equal(t, []interface{}{"a", "b"}, received)
		receivedMu.Unlock()
		assert.True(t, hub.Connected())

		client.Disconnect()
		wg.Wait()
	})

	t.Run("disconnect suppresses reconnection", func(t *testing.T) {
		// arrange
		conn := newFakeConn(true, frame(t, "tick", "a"))
		spare := newFakeConn(true)
		dialer := &fakeDialer{conns: []*fakeConn{conn, spare}}

		hub := eventpubsub.NewHub()

		var wg sync.WaitGroup
		client := NewStreamClient(&wg, "ws://stream", hub, dialer.dial, time.Millisecond, 5)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client.Start(ctx)
		waitFor(t, hub.Connected, "initial connect")

		// act
		client.Disconnect()
		wg.Wait()

		// assert: only the first dial happened
		assert.Equal(t, 1, dialer.attemptCount())
		assert.False(t, hub.Connected())
	})

	t.Run("malformed frames are skipped", func(t *testing.T) {
		// arrange
		conn := newFakeConn(false, []byte("not json"), frame(t, "tick", "ok"))
		dialer := &fakeDialer{conns: []*fakeConn{conn}}

		hub := eventpubsub.NewHub()

		var received []interface{}
		var receivedMu sync.Mutex
		hub.Subscribe(func(msg eventmodels.Message) {
			receivedMu.Lock()
			defer receivedMu.Unlock()
			received = append(received, msg.Payload)
		}, nil)

		var wg sync.WaitGroup
		client := NewStreamClient(&wg, "ws://stream", hub, dialer.dial, time.Millisecond, 1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// act
		client.Start(ctx)
		wg.Wait()

		// assert
		receivedMu.Lock()
		assert.Equal(t, []interface{}{"ok"}, received)
		receivedMu.Unlock()
	})
}
