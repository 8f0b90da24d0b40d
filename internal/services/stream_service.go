package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrianmo/go-nmea"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/pkg/credential"
	"github.com/rento-fleet/fleet-tracker/pkg/mqtt"
	"github.com/rs/zerolog"
)

// StreamService owns the long-lived push connection to the tracking
// broker. It parses inbound frames into position reports and enqueues
// them; it knows nothing about rendering. Reconnection is the
// transport's job, surfaced here only as a status transition.
type StreamService struct {
	// Configuration fields
	positionTopic  string
	heartbeatTopic string
	qos            int

	// Dependencies
	credentials credential.ManagerInterface
	mqttClient  mqtt.MQTTClient
	queue       *tracking.ReportQueue
	logger      zerolog.Logger

	// Internal state management. started tracks the service lifecycle;
	// connected tracks whether a transport connection was ever opened.
	// An unauthenticated session is started but never connected.
	mu        sync.Mutex
	status    models.StreamStatus
	started   bool
	connected bool
	stopped   bool
	dropped   atomic.Uint64
}

// rawReport is the wire shape of one position object. Older feeds key
// the vehicle by mdn, newer ones by vehicleId; both are accepted.
type rawReport struct {
	MDN       string  `json:"mdn"`
	VehicleID string  `json:"vehicleId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (r rawReport) id() string {
	if r.VehicleID != "" {
		return r.VehicleID
	}
	return r.MDN
}

// NewStreamService initializes a new StreamService.
func NewStreamService(positionTopic, heartbeatTopic string, qos int,
	credentials credential.ManagerInterface, mqttClient mqtt.MQTTClient,
	queue *tracking.ReportQueue, logger zerolog.Logger) *StreamService {
	return &StreamService{
		positionTopic:  positionTopic,
		heartbeatTopic: heartbeatTopic,
		qos:            qos,
		credentials:    credentials,
		mqttClient:     mqttClient,
		queue:          queue,
		logger:         logger,
		status:         models.StreamUnauthenticated,
	}
}

// Start opens the stream connection. With no usable credential, no
// connection is ever opened and the status reports unauthenticated;
// that is terminal for the stream but not an error for the host.
func (s *StreamService) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn().Msg("StreamService is already running")
		return errors.New("stream service is already running")
	}
	s.started = true
	s.stopped = false

	if !s.credentials.IsValid() {
		s.status = models.StreamUnauthenticated
		s.mu.Unlock()
		s.logger.Warn().Msg("No valid stream credential, not connecting")
		return nil
	}

	s.status = models.StreamConnecting
	s.mu.Unlock()

	// Subscriptions are (re-)established from the on-connect hook so
	// they survive the transport's native reconnects.
	s.mqttClient.SetOnConnect(s.handleConnect)
	s.mqttClient.SetConnectionLostHandler(s.handleConnectionLost)

	// With connect-retry enabled the transport keeps trying on its own;
	// an initial failure is a status, not a startup error.
	s.mqttClient.Connect()

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.logger.Info().Str("topic", s.positionTopic).Msg("StreamService started")
	return nil
}

// Stop tears the stream down. The connection, when one was opened, is
// closed exactly once; frames delivered during shutdown are ignored.
// Stopping an unauthenticated session that never connected is a clean
// no-op.
func (s *StreamService) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn().Msg("StreamService is not running")
		return errors.New("stream service is not running")
	}
	s.started = false
	s.stopped = true

	if !s.connected {
		s.mu.Unlock()
		s.logger.Info().Msg("StreamService stopped, no connection was open")
		return nil
	}
	s.connected = false
	s.status = models.StreamStopped
	s.mu.Unlock()

	topics := []string{s.positionTopic + "/#"}
	if s.heartbeatTopic != "" {
		topics = append(topics, s.heartbeatTopic)
	}
	token := s.mqttClient.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to unsubscribe from stream topics")
	}

	s.mqttClient.Disconnect(250)
	s.logger.Info().Msg("StreamService stopped")
	return nil
}

// Status returns the current connection status.
func (s *StreamService) Status() models.StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dropped returns how many malformed frames were discarded.
func (s *StreamService) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *StreamService) handleConnect(client MQTT.Client) {
	// Position frames may be published per-vehicle on a subtopic, so the
	// subscription covers one level below the base topic as well.
	token := s.mqttClient.Subscribe(s.positionTopic+"/#", byte(s.qos), s.handlePositionFrame)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", s.positionTopic).Msg("Failed to subscribe to position topic")
		return
	}

	if s.heartbeatTopic != "" {
		hbToken := s.mqttClient.Subscribe(s.heartbeatTopic, byte(s.qos), s.handleHeartbeatFrame)
		hbToken.Wait()
		if err := hbToken.Error(); err != nil {
			s.logger.Warn().Err(err).Str("topic", s.heartbeatTopic).Msg("Failed to subscribe to heartbeat topic")
		}
	}

	s.mu.Lock()
	if !s.stopped {
		s.status = models.StreamSubscribed
	}
	s.mu.Unlock()
	s.logger.Info().Str("topic", s.positionTopic).Msg("Subscribed to position stream")
}

func (s *StreamService) handleConnectionLost(client MQTT.Client, err error) {
	s.mu.Lock()
	if !s.stopped {
		s.status = models.StreamReconnecting
	}
	s.mu.Unlock()
	s.logger.Warn().Err(err).Msg("Stream connection lost, transport is reconnecting")
}

// handlePositionFrame parses one inbound frame. A frame carries a single
// JSON object, a JSON array of objects, or a raw NMEA sentence from a
// device publishing on its own subtopic. Malformed payloads are dropped
// silently; they must never become fatal.
func (s *StreamService) handlePositionFrame(client MQTT.Client, msg MQTT.Message) {
	if s.isStopped() {
		return
	}

	payload := bytes.TrimSpace(msg.Payload())
	if len(payload) == 0 {
		s.drop("empty payload")
		return
	}

	now := time.Now()
	switch payload[0] {
	case '{':
		var raw rawReport
		if err := json.Unmarshal(payload, &raw); err != nil {
			s.drop("unparseable object")
			return
		}
		s.enqueue(raw, now)
	case '[':
		var raws []rawReport
		if err := json.Unmarshal(payload, &raws); err != nil {
			s.drop("unparseable array")
			return
		}
		for _, raw := range raws {
			s.enqueue(raw, now)
		}
	case '$':
		s.enqueueSentence(msg.Topic(), string(payload), now)
	default:
		s.drop("unrecognized payload")
	}
}

// handleHeartbeatFrame accepts and ignores heartbeat frames.
func (s *StreamService) handleHeartbeatFrame(client MQTT.Client, msg MQTT.Message) {
	s.logger.Debug().Msg("Heartbeat frame received")
}

func (s *StreamService) enqueue(raw rawReport, receivedAt time.Time) {
	vehicleID := raw.id()
	if vehicleID == "" {
		s.drop("missing vehicle identifier")
		return
	}

	s.queue.Enqueue(models.PositionReport{
		VehicleID:  vehicleID,
		Latitude:   raw.Latitude,
		Longitude:  raw.Longitude,
		ReceivedAt: receivedAt,
	})
}

// enqueueSentence handles trackers that publish raw NMEA sentences. The
// vehicle identifier is the last topic segment, since the sentence
// itself carries none.
func (s *StreamService) enqueueSentence(topic, sentence string, receivedAt time.Time) {
	vehicleID := topic[strings.LastIndex(topic, "/")+1:]
	if vehicleID == "" || topic == s.positionTopic {
		s.drop("sentence without vehicle subtopic")
		return
	}

	parsed, err := nmea.Parse(sentence)
	if err != nil {
		s.drop("unparseable sentence")
		return
	}

	var lat, lng float64
	switch sent := parsed.(type) {
	case nmea.RMC:
		lat, lng = sent.Latitude, sent.Longitude
	case nmea.GGA:
		lat, lng = sent.Latitude, sent.Longitude
	default:
		s.drop("unsupported sentence type")
		return
	}

	s.queue.Enqueue(models.PositionReport{
		VehicleID:  vehicleID,
		Latitude:   lat,
		Longitude:  lng,
		ReceivedAt: receivedAt,
	})
}

func (s *StreamService) drop(reason string) {
	s.dropped.Add(1)
	s.logger.Debug().Str("reason", reason).Msg("Dropped stream frame")
}

func (s *StreamService) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
