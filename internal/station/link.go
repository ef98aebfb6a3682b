package station

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
)

// Message is an inbound publish queued for the machine.
type Message struct {
	Topic   string
	Payload []byte
}

// Link is the station's network connection.
type Link interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte) error

	// Poll services the connection and returns the next queued message,
	// waiting at most wait for one to arrive.
	Poll(wait time.Duration) (Message, bool)
}

// MQTTClient is the subset of the MQTT client used by MQTTLink.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// DefaultInboxSize is the number of replies MQTTLink buffers.
const DefaultInboxSize = 16

// MQTTLink adapts an MQTT client to Link. Messages delivered on the
// client's callback goroutines are queued on a buffered inbox and handed
// out by Poll.
type MQTTLink struct {
	client MQTTClient
	qos    byte
	inbox  chan Message

	logger   Logger
	loggerMu sync.RWMutex
}

// NewMQTTLink creates a link publishing and subscribing at qos.
func NewMQTTLink(client MQTTClient, qos byte) *MQTTLink {
	return &MQTTLink{
		client: client,
		qos:    qos,
		inbox:  make(chan Message, DefaultInboxSize),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used for dropped messages.
func (l *MQTTLink) SetLogger(logger Logger) {
	l.loggerMu.Lock()
	defer l.loggerMu.Unlock()
	l.logger = logger
}

// Subscribe subscribes to topic, replacing any earlier subscription to it.
func (l *MQTTLink) Subscribe(topic string) error {
	if err := l.client.Subscribe(topic, l.qos, l.enqueue); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription to topic.
func (l *MQTTLink) Unsubscribe(topic string) error {
	if err := l.client.Unsubscribe(topic); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload to topic, not retained.
func (l *MQTTLink) Publish(topic string, payload []byte) error {
	if err := l.client.Publish(topic, payload, l.qos, false); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Poll returns the next queued message, waiting up to wait.
func (l *MQTTLink) Poll(wait time.Duration) (Message, bool) {
	select {
	case msg := <-l.inbox:
		return msg, true
	default:
	}
	if wait <= 0 {
		return Message{}, false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case msg := <-l.inbox:
		return msg, true
	case <-timer.C:
		return Message{}, false
	}
}

// enqueue is the MQTT handler. It never blocks the client's goroutine.
func (l *MQTTLink) enqueue(topic string, payload []byte) error {
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	select {
	case l.inbox <- msg:
		return nil
	default:
		l.loggerMu.RLock()
		logger := l.logger
		l.loggerMu.RUnlock()
		logger.Warn("dropping message", "topic", topic, "error", ErrInboxFull)
		return nil
	}
}
