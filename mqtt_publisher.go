package main

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes encode-complete events
type MQTTPublisher struct {
	client mqtt.Client
	config *MQTTConfig
}

// EncodeEvent is the payload published after each successful encode
type EncodeEvent struct {
	JobID        string             `json:"job_id"`
	Timestamp    int64              `json:"timestamp"`
	Protocol     string             `json:"protocol"`
	ProtocolName string             `json:"protocol_name"`
	VIS          uint8              `json:"vis"`
	SampleRate   int                `json:"sample_rate"`
	Samples      int                `json:"samples"`
	Duration     float64            `json:"duration_seconds"`
	Format       string             `json:"format"`
	Input        string             `json:"input"`
	Output       string             `json:"output"`
	Callsign     string             `json:"callsign,omitempty"`
	Location     *EventLocation     `json:"location,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// EventLocation is the station position from the grid overlay
type EventLocation struct {
	Grid      string  `json:"grid"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// generateClientID creates a random client ID for MQTT connection
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "sstvtx_" + hex.EncodeToString(bytes)
}

// loadTLSConfig loads TLS configuration from files
func loadTLSConfig(tlsConfig MQTTTLSConfig) (*tls.Config, error) {
	if !tlsConfig.Enabled {
		return nil, nil
	}

	config := &tls.Config{}

	// Load CA certificate if provided
	if tlsConfig.CACert != "" {
		caCert, err := os.ReadFile(tlsConfig.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = caCertPool
	}

	// Load client certificate and key if provided
	if tlsConfig.ClientCert != "" && tlsConfig.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.ClientCert, tlsConfig.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// newMQTTClientOptions builds client options from config
func newMQTTClientOptions(config *MQTTConfig) (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	// One-shot publisher: fail fast rather than retry in the background
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWriteTimeout(10 * time.Second)

	// TLS configuration if enabled
	if config.TLS.Enabled {
		tlsConfig, err := loadTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("[MQTT] Connected to broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v", err)
	})

	return opts, nil
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(config *MQTTConfig) (*MQTTPublisher, error) {
	opts, err := newMQTTClientOptions(config)
	if err != nil {
		return nil, err
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTPublisher{
		client: client,
		config: config,
	}, nil
}

// encodeTopic returns the topic for encode events
func encodeTopic(config *MQTTConfig) string {
	return fmt.Sprintf("%s/encode", config.TopicPrefix)
}

// PublishEncode sends an encode-complete event
func (mp *MQTTPublisher) PublishEncode(event EncodeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal encode event: %w", err)
	}

	topic := encodeTopic(mp.config)
	token := mp.client.Publish(topic, mp.config.QoS, mp.config.Retain, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	log.Printf("[MQTT] Published encode event to %s", topic)
	return nil
}

// Disconnect gracefully disconnects from the MQTT broker
func (mp *MQTTPublisher) Disconnect() {
	if mp.client != nil && mp.client.IsConnected() {
		mp.client.Disconnect(250)
		log.Println("[MQTT] Disconnected from broker")
	}
}
