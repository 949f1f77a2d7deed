package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/weather-dashboard/weather-api/internal/logger"
)

// MQTTConfig configures the optional MQTT transport for device pushes.
type MQTTConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
	Username  string
	Password  string
}

// ingestTimeout bounds the store round trip for one MQTT message.
const ingestTimeout = 5 * time.Second

// MQTTSubscriber feeds payloads published by devices into the same ingest
// path as HTTP pushes. Topics look like sensors/<deviceId>/data; the device
// segment is used when the payload carries no deviceId.
type MQTTSubscriber struct {
	cfg     MQTTConfig
	service *Service
	log     *logger.Logger
	client  mqtt.Client
}

func NewMQTTSubscriber(cfg MQTTConfig, service *Service, log *logger.Logger) *MQTTSubscriber {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Topic == "" {
		cfg.Topic = "sensors/+/data"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "weather-api"
	}
	return &MQTTSubscriber{
		cfg:     cfg,
		service: service,
		log:     log.WithComponent("mqtt"),
	}
}

// Start connects to the broker and subscribes. Subscriptions are renewed on
// every reconnect.
func (m *MQTTSubscriber) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.log.ErrorWithError(err, "mqtt connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		m.log.Info("mqtt connected, subscribing to " + m.cfg.Topic)
		if token := c.Subscribe(m.cfg.Topic, 1, m.onMessage); token.Wait() && token.Error() != nil {
			m.log.ErrorWithError(token.Error(), "mqtt subscribe failed")
		}
	}

	m.client = mqtt.NewClient(opts)
	if tk := m.client.Connect(); tk.Wait() && tk.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.cfg.BrokerURL, tk.Error())
	}
	return nil
}

// Stop disconnects from the broker.
func (m *MQTTSubscriber) Stop() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(500)
	}
}

func (m *MQTTSubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var in Input
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		m.log.ErrorWithError(err, "invalid sensor payload on "+msg.Topic())
		return
	}
	if in.DeviceID == "" {
		in.DeviceID = deviceFromTopic(msg.Topic())
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, err := m.service.Ingest(ctx, in); err != nil {
		m.log.ErrorWithError(err, "mqtt ingest failed for "+msg.Topic())
	}
}

// deviceFromTopic returns the second topic level of sensors/<id>/..., or ""
// so the profile default applies.
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
