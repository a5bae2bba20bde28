// Package eventpubsub distributes state-change and analysis messages to
// live client connections. The hub is an explicit object owned by the
// composition root, not package-global state.
package eventpubsub

import (
	"sync"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
)

const (
	topicMessages = "hub:messages"
	topicStatus   = "hub:status"
)

type MessageCallback func(msg eventmodels.Message)
type StatusCallback func(connected bool)

// Hub fans messages out to all current subscribers in registration order.
// While no subscriber holds a message callback, published messages
// accumulate in a FIFO queue and are flushed to the next message subscriber
// in arrival order. A panic in one callback never blocks delivery to the
// others.
type Hub struct {
	// deliverMu serializes delivery sequences so per-subscriber FIFO order
	// holds across the flush and subsequent direct publishes.
	deliverMu sync.Mutex

	mu sync.Mutex

	bus EventBus.Bus

	// msgSubscribers counts subscriptions with a message callback; status-only
	// observers must not stop messages from queueing.
	msgSubscribers int
	queue          []eventmodels.Message
	connected      bool
}

func NewHub() *Hub {
	return &Hub{
		bus: EventBus.New(),
	}
}

// Subscribe registers the callbacks for one live connection and returns its
// unsubscribe func. Messages queued while there were zero subscribers are
// flushed to the new subscriber first; the current connection status is
// delivered immediately to onStatus.
func (h *Hub) Subscribe(onMessage MessageCallback, onStatus StatusCallback) func() {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	var messageHandler func(msg eventmodels.Message)
	if onMessage != nil {
		messageHandler = func(msg eventmodels.Message) {
			safeInvokeMessage(onMessage, msg)
		}
	}

	var statusHandler func(connected bool)
	if onStatus != nil {
		statusHandler = func(connected bool) {
			safeInvokeStatus(onStatus, connected)
		}
	}

	h.mu.Lock()

	pending := h.queue
	h.queue = nil
	currentStatus := h.connected

	if messageHandler != nil {
		if err := h.bus.Subscribe(topicMessages, messageHandler); err != nil {
			log.Errorf("Hub:Subscribe(): failed to subscribe message callback: %v", err)
		}

		h.msgSubscribers++
	}

	if statusHandler != nil {
		if err := h.bus.Subscribe(topicStatus, statusHandler); err != nil {
			log.Errorf("Hub:Subscribe(): failed to subscribe status callback: %v", err)
		}
	}

	h.mu.Unlock()

	// flush goes only to the new subscriber, in original arrival order
	if messageHandler != nil {
		for _, msg := range pending {
			messageHandler(msg)
		}
	}

	if statusHandler != nil {
		statusHandler(currentStatus)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if messageHandler != nil {
				if err := h.bus.Unsubscribe(topicMessages, messageHandler); err != nil {
					log.Errorf("Hub:Subscribe(): failed to unsubscribe message callback: %v", err)
				}

				h.msgSubscribers--
			}

			if statusHandler != nil {
				if err := h.bus.Unsubscribe(topicStatus, statusHandler); err != nil {
					log.Errorf("Hub:Subscribe(): failed to unsubscribe status callback: %v", err)
				}
			}
		})
	}
}

// Publish delivers msg synchronously to all current subscribers, or queues
// it while nobody holds a message callback. Messages are never dropped
// inside one process lifetime.
func (h *Hub) Publish(msg eventmodels.Message) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.Lock()
	if h.msgSubscribers == 0 {
		h.queue = append(h.queue, msg)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.bus.Publish(topicMessages, msg)
}

// NotifyStatus records the transport status and pushes it to all status
// subscribers.
func (h *Hub) NotifyStatus(connected bool) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.Lock()
	h.connected = connected
	h.mu.Unlock()

	h.bus.Publish(topicStatus, connected)
}

// Connected reports the last status pushed through NotifyStatus.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.connected
}

func safeInvokeMessage(cb MessageCallback, msg eventmodels.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Hub: message callback panicked: %v", r)
		}
	}()

	cb(msg)
}

func safeInvokeStatus(cb StatusCallback, connected bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Hub: status callback panicked: %v", r)
		}
	}()

	cb(connected)
}
