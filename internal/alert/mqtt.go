package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker      string // host:port or a full tcp://, ssl://, ws:// URL
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher sends each alert to <prefix>/alerts.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    logger.Module
}

// AlertTopic returns the topic alerts are published on.
func AlertTopic(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "drowsiness"
	}
	return prefix + "/alerts"
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// DialMQTT connects to the broker with auto-reconnect enabled.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (*MQTTPublisher, error) {
	log := logger.For("MQTT")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Infof("Connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnf("Connection to %s lost: %v", cfg.Broker, err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return &MQTTPublisher{client: client, topic: AlertTopic(cfg.TopicPrefix), qos: cfg.QoS, log: log}, nil
}

// Name identifies the publisher in logs.
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic returns the alert topic.
func (p *MQTTPublisher) Topic() string { return p.topic }

// Publish sends e as JSON and waits for the broker until ctx expires.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected")
	}
	payload, err := e.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("publish timeout: %w", ctx.Err())
	}
}

// Close disconnects with a short grace period.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
