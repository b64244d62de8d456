package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwbudde/ransacfit/internal/config"
)

// publishTimeout bounds how long a broadcast waits for the broker.
const publishTimeout = 2 * time.Second

// MQTTSink publishes job events to <prefix>/jobs/<jobID>.
type MQTTSink struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
}

// NewMQTTSink wraps a connected client. Events are published with QoS 0
// and retained, so late subscribers see each job's latest state.
func NewMQTTSink(client mqtt.Client, prefix string) *MQTTSink {
	if prefix == "" {
		prefix = "ransacfit"
	}
	return &MQTTSink{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: true,
	}
}

// Topic returns the topic of a job.
func (m *MQTTSink) Topic(jobID string) string {
	return fmt.Sprintf("%s/jobs/%s", m.prefix, jobID)
}

// Publish sends the event as JSON. Failures are logged; progress
// publishing never fails a job.
func (m *MQTTSink) Publish(event ProgressEvent) {
	if err := m.publish(event); err != nil {
		slog.Warn("MQTT publish failed", "job_id", event.JobID, "error", err)
	}
}

func (m *MQTTSink) publish(event ProgressEvent) error {
	if m.client == nil || !m.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := m.client.Publish(m.Topic(event.JobID), m.qos, m.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", m.Topic(event.JobID))
	}
	return token.Error()
}

// ConnectMQTT connects to the configured broker. It returns nil, nil when
// no broker is configured.
func ConnectMQTT(cfg config.MQTTConfig) (mqtt.Client, error) {
	if !cfg.Enabled() {
		slog.Info("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ransacfit"
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT connection lost, reconnecting", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to MQTT broker %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, err)
	}

	slog.Info("Connected to MQTT broker", "broker", cfg.Broker, "client_id", clientID)
	return client, nil
}
