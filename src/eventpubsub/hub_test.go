package eventpubsub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsedge/src/eventmodels"
)

func Test_Hub_QueueFlush(t *testing.T) {
	t.Run("messages published with zero subscribers are flushed in order", func(t *testing.T) {
		// arrange
		hub := NewHub()

		for i := 0; i < 5; i++ {
			hub.Publish(eventmodels.NewMessage("tick", i))
		}

		// act
		var received []interface{}
		hub.Subscribe(func(msg eventmodels.Message) {
			received = append(received, msg.Payload)
		}, nil)

		// assert
		require.Equal(t, 5, len(received))
		for i := 0; i < 5; i++ {
			assert.Equal(t, i, received[i])
		}
	})

	t.Run("publish after subscribe delivers directly without re-queueing", func(t *testing.T) {
		// arrange
		hub := NewHub()
		hub.Publish(eventmodels.NewMessage("tick", "queued"))

		var received []interface{}
		hub.Subscribe(func(msg eventmodels.Message) {
			received = append(received, msg.Payload)
		}, nil)

		// act
		hub.Publish(eventmodels.NewMessage("tick", "direct"))

		// assert
		assert.Equal(t, []interface{}{"queued", "direct"}, received)
	})

	t.Run("status-only subscribers do not stop messages from queueing", func(t *testing.T) {
		// arrange: an observer watching connection status only
		hub := NewHub()
		hub.Subscribe(nil, func(connected bool) {})

		hub.Publish(eventmodels.NewMessage("tick", "held"))

		// act: the first message subscriber gets the held message
		var received []interface{}
		hub.Subscribe(func(msg eventmodels.Message) {
			received = append(received, msg.Payload)
		}, nil)

		// assert
		assert.Equal(t, []interface{}{"held"}, received)
	})

	t.Run("queue is cleared after the first flush", func(t *testing.T) {
		// arrange
		hub := NewHub()
		hub.Publish(eventmodels.NewMessage("tick", "once"))

		var first []interface{}
		unsubscribe := hub.Subscribe(func(msg eventmodels.Message) {
			first = append(first, msg.Payload)
		}, nil)
		unsubscribe()

		// act: a second subscriber must not see the flushed message again
		var second []interface{}
		hub.Subscribe(func(msg eventmodels.Message) {
			second = append(second, msg.Payload)
		}, nil)

		// assert
		assert.Equal(t, []interface{}{"once"}, first)
		assert.Empty(t, second)
	})
}

func Test_Hub_Broadcast(t *testing.T) {
	t.Run("delivers to all subscribers in registration order", func(t *testing.T) {
		// arrange
		hub := NewHub()

		var order []string
		hub.Subscribe(func(msg eventmodels.Message) {
			order = append(order, "first")
		}, nil)
		hub.Subscribe(func(msg eventmodels.Message) {
			order = append(order, "second")
		}, nil)

		// act
		hub.Publish(eventmodels.NewMessage("tick", nil))

		// assert
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("a panicking callback does not block other subscribers", func(t *testing.T) {
		// arrange
		hub := NewHub()

		hub.Subscribe(func(msg eventmodels.Message) {
			panic(fmt.Errorf("subscriber blew up"))
		}, nil)

		var delivered int
		hub.Subscribe(func(msg eventmodels.Message) {
			delivered++
		}, nil)

		// act
		hub.Publish(eventmodels.NewMessage("tick", nil))
		hub.Publish(eventmodels.NewMessage("tick", nil))

		// assert
		assert.Equal(t, 2, delivered)
	})

	t.Run("unsubscribed connections stop receiving", func(t *testing.T) {
		// arrange
		hub := NewHub()

		var received int
		unsubscribe := hub.Subscribe(func(msg eventmodels.Message) {
			received++
		}, nil)

		hub.Publish(eventmodels.NewMessage("tick", nil))

		// act
		unsubscribe()
		unsubscribe() // idempotent
		hub.Publish(eventmodels.NewMessage("tick", nil))

		// assert
		assert.Equal(t, 1, received)
	})
}

func Test_Hub_Status(t *testing.T) {
	t.Run("new subscriber receives current status immediately", func(t *testing.T) {
		// arrange
		hub := NewHub()
		hub.NotifyStatus(true)

		// act
		var statuses []bool
		hub.Subscribe(nil, func(connected bool) {
			statuses = append(statuses, connected)
		})

		// assert
		assert.Equal(t, []bool{true}, statuses)
	})

	t.Run("status changes reach all status subscribers", func(t *testing.T) {
		// arrange
		hub := NewHub()

		var statuses []bool
		hub.Subscribe(nil, func(connected bool) {
			statuses = append(statuses, connected)
		})

		// act
		hub.NotifyStatus(true)
		hub.NotifyStatus(false)

		// assert
		assert.Equal(t, []bool{false, true, false}, statuses)
		assert.False(t, hub.Connected())
	})
}
