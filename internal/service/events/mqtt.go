package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

type MQTTOptions struct {
	Broker   string // host:port or a full URL such as ssl://host:8883
	ClientID string
	Topic    string
	QoS      byte
	Encoding string
}

// MQTTPublisher publishes events to <Topic>/<source>.
type MQTTPublisher struct {
	opts   MQTTOptions
	encode Encoder
	client mqtt.Client
	logger *logger.Logger

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// newMQTTClient is a seam for tests.
var newMQTTClient = mqtt.NewClient

func NewMQTTPublisher(opts MQTTOptions, log *logger.Logger) (*MQTTPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker must be set")
	}
	encode, err := NewEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", opts.QoS)
	}
	return &MQTTPublisher{opts: opts, encode: encode, logger: log}, nil
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Connect establishes the broker connection. The client reconnects on its own
// after a lost connection.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	broker := p.opts.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(p.opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)

	co.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("MQTT connection established: %s", broker)
	}
	co.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	p.client = newMQTTClient(co)

	token := p.client.Connect()
	if !waitToken(ctx, token, connectTimeout) {
		return errors.New("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)
	return nil
}

// Publish sends event to <Topic>/<source>.
func (p *MQTTPublisher) Publish(ctx context.Context, event dto.DetectionEvent) error {
	if p.client == nil || !p.isConnected() {
		p.countError()
		return errors.New("mqtt not connected")
	}

	payload, err := p.encode(event)
	if err != nil {
		p.countError()
		return fmt.Errorf("failed to encode event: %w", err)
	}

	topic := p.Topic(event.Source)
	token := p.client.Publish(topic, p.opts.QoS, false, payload)
	if !waitToken(ctx, token, publishTimeout) {
		p.countError()
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	p.logger.Debug("Event published to %s (%d bytes)", topic, len(payload))
	return nil
}

// Topic is the topic events of source are published to.
func (p *MQTTPublisher) Topic(source string) string {
	return strings.TrimRight(p.opts.Topic, "/") + "/" + source
}

// Disconnect closes the connection with a short grace period.
func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Info("MQTT disconnected")
	}
	p.setConnected(false)
}

// Stats returns how many events were published and how many failed.
func (p *MQTTPublisher) Stats() (published, failed uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.published, p.errors
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}

// waitToken waits for token up to timeout or until ctx is done.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
