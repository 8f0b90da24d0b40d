package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rento-fleet/fleet-tracker/pkg/file"
)

// MQTTClient defines the interface for the stream transport client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
	SetOnConnect(handler mqtt.OnConnectHandler)
	SetConnectionLostHandler(handler mqtt.ConnectionLostHandler)
}

// MqttService wraps the paho client. The broker connection is configured
// by Initialize but only opened by Connect, so the owning service can
// refuse to connect at all when no credential is available.
type MqttService struct {
	opts       *mqtt.ClientOptions
	client     mqtt.Client
	fileClient file.FileOperations
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations) *MqttService {
	return &MqttService{
		fileClient: fileClient,
	}
}

// Initialize prepares the client options: broker address, client identity,
// credential auth, optional TLS, and the transport's native reconnect
// behavior. No custom backoff is layered on top.
func (s *MqttService) Initialize(broker, clientID, username, token, caCertPath string) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetResumeSubs(true)

	if username != "" {
		opts.SetUsername(username)
	}
	if token != "" {
		opts.SetPassword(token)
	}

	if caCertPath != "" {
		caCert, err := s.fileClient.ReadFileRaw(caCertPath)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to append CA certificate")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: caCertPool})
	}

	s.opts = opts
	return nil
}

// SetOnConnect registers a handler fired on every successful connection,
// including reconnects. Must be called before Connect.
func (s *MqttService) SetOnConnect(handler mqtt.OnConnectHandler) {
	s.opts.SetOnConnectHandler(handler)
}

// SetConnectionLostHandler registers a handler fired when the connection
// drops. Must be called before Connect.
func (s *MqttService) SetConnectionLostHandler(handler mqtt.ConnectionLostHandler) {
	s.opts.SetConnectionLostHandler(handler)
}

// Connect builds the paho client on first use and opens the connection.
func (s *MqttService) Connect() mqtt.Token {
	if s.client == nil {
		s.client = mqtt.NewClient(s.opts)
	}
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	return s.client.Unsubscribe(topics...)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	if s.client != nil {
		s.client.Disconnect(quiesce)
	}
}
