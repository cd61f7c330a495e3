package bridge

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dronelink/dronelinkd/internal/config"
)

// Handler receives one inbound message.
type Handler func(topic string, payload []byte)

// Client is the MQTT surface the bridge needs. It lets the bridge be tested
// without a live broker.
type Client interface {
	Subscribe(topic string, qos byte, handler Handler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// PahoClient is a Client backed by a paho connection.
type PahoClient struct {
	cli    mqtt.Client
	logger *slog.Logger
}

// Dial connects to cfg.Broker. will, when non-empty, is published retained on
// willTopic if the connection drops.
func Dial(cfg config.MQTTConfig, willTopic string, will []byte, logger *slog.Logger) (*PahoClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	// Handlers run in arrival order on paho's goroutine; they only enqueue.
	opts.SetOrderMatters(true)
	if willTopic != "" && len(will) > 0 {
		opts.SetBinaryWill(willTopic, will, cfg.QoS, true)
	}
	opts.OnConnect = func(mqtt.Client) { logger.Info("MQTT connected", "broker", cfg.Broker) }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Error("MQTT connection lost", "broker", cfg.Broker, "error", err)
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return &PahoClient{cli: cli, logger: logger}, nil
}

func (c *PahoClient) Subscribe(topic string, qos byte, handler Handler) error {
	t := c.cli.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	c.logger.Info("MQTT subscribed", "topic", topic)
	return nil
}

func (c *PahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	t := c.cli.Publish(topic, qos, retained, payload)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

func (c *PahoClient) Disconnect() {
	c.cli.Disconnect(250)
}
