package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// outboxCapacity bounds messages held while the broker is unreachable.
const outboxCapacity = 200

// RealPublisher publishes to an actual MQTT broker. Publishing never
// waits on the network: while disconnected, messages wait in an
// outbox that is replayed in order on (re)connect.
type RealPublisher struct {
	client paho.Client
	bootID string

	mu        sync.Mutex
	buf       *outbox
	connected bool
	everUp    bool
}

// NewRealPublisher starts connecting to the broker in the background.
// An unreachable broker is not an error; the client keeps retrying.
func NewRealPublisher(broker, clientID, bootID string) *RealPublisher {
	p := &RealPublisher{
		bootID: bootID,
		buf:    newOutbox(outboxCapacity),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
		BootID:    bootID,
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everUp
	p.everUp = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected")
		payload, _ := FormatSystemPayload(SystemEvent{
			Timestamp: time.Now(),
			Event:     "RECONNECTED",
			BootID:    p.bootID,
		})
		c.Publish(TopicSystem, 1, false, payload)
	} else {
		log.Printf("mqtt: connected")
	}

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		p.watch(c.Publish(m.topic, m.qos, m.retained, m.payload), m.topic)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// PublishRecord sends a vitals record (QoS 1, not retained).
func (p *RealPublisher) PublishRecord(rec RecordEvent) error {
	payload, err := FormatRecordPayload(rec)
	if err != nil {
		return fmt.Errorf("format record payload: %w", err)
	}
	p.publish(classRecord, TopicRecords, 1, false, payload)
	return nil
}

// PublishEvent sends a device event (QoS 0, not retained).
func (p *RealPublisher) PublishEvent(event DeviceEvent) error {
	payload, err := FormatEventPayload(event)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	p.publish(classEvent, TopicEvents, 0, false, payload)
	return nil
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	if event.BootID == "" {
		event.BootID = p.bootID
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.publish(classSystem, TopicSystem, 1, event.Retained, payload)
	return nil
}

func (p *RealPublisher) publish(class msgClass, topic string, qos byte, retained bool, payload []byte) {
	p.mu.Lock()
	if !p.connected {
		p.buf.push(outboxMsg{class: class, topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.watch(p.client.Publish(topic, qos, retained, payload), topic)
}

// watch logs a failed publish without blocking the caller.
func (p *RealPublisher) watch(token paho.Token, topic string) {
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish to %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", topic, err)
		}
	}()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
