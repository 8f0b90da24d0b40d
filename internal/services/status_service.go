package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
)

// StreamHealth is the slice of the stream service the status beacon
// reads: connection status and the dropped-frame counter.
type StreamHealth interface {
	Status() models.StreamStatus
	Dropped() uint64
}

// StatusService periodically publishes a runtime snapshot of the
// tracking pipeline: stream health, queue depth, live vehicle counts,
// and process CPU/memory.
type StatusService struct {
	// Configuration fields
	pubTopic  string
	interval  time.Duration
	qos       int
	sessionID string

	// Dependencies
	stream     StreamHealth
	dispatcher *DispatcherService
	store      *tracking.Store
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger
	proc       *process.Process

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int, sessionID string,
	stream StreamHealth, dispatcher *DispatcherService, store *tracking.Store,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *StatusService {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn().Err(err).Msg("Process gauges unavailable for status beacon")
		proc = nil
	}

	return &StatusService{
		pubTopic:   pubTopic,
		interval:   interval,
		qos:        qos,
		sessionID:  sessionID,
		stream:     stream,
		dispatcher: dispatcher,
		store:      store,
		mqttClient: mqttClient,
		logger:     logger,
		proc:       proc,
	}
}

// Start launches the beacon loop.
func (s *StatusService) Start() error {
	if s.running {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.publishBeacon()
			case <-s.ctx.Done():
				s.logger.Info().Msg("StatusService is stopping")
				return
			}
		}
	}()

	s.logger.Info().Str("topic", s.pubTopic).Dur("interval", s.interval).Msg("StatusService started")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.logger.Info().Msg("StatusService stopped")
	return nil
}

// Snapshot collects the current beacon without publishing it.
func (s *StatusService) Snapshot() models.StatusBeacon {
	beacon := models.StatusBeacon{
		Timestamp:     time.Now(),
		SessionID:     s.sessionID,
		Stream:        s.stream.Status(),
		QueueDepth:    s.dispatcher.QueueDepth(),
		Vehicles:      s.store.MarkerCount(),
		Paths:         s.store.PathCount(),
		DroppedFrames: s.stream.Dropped(),
	}

	if s.proc != nil {
		if cpuPercent, err := s.proc.CPUPercent(); err == nil {
			beacon.CPUPercent = cpuPercent
		}
		if memInfo, err := s.proc.MemoryInfo(); err == nil && memInfo != nil {
			beacon.MemoryRSS = memInfo.RSS
		}
	}

	return beacon
}

func (s *StatusService) publishBeacon() {
	beacon := s.Snapshot()

	// With an unauthenticated stream no transport connection exists to
	// publish over; the snapshot still lands in the log.
	if beacon.Stream == models.StreamUnauthenticated {
		s.logger.Debug().
			Str("stream", string(beacon.Stream)).
			Int("queue_depth", beacon.QueueDepth).
			Msg("Status beacon held, stream unauthenticated")
		return
	}

	payload, err := json.Marshal(beacon)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to serialize status beacon")
		return
	}

	token := s.mqttClient.Publish(s.pubTopic, byte(s.qos), false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish status beacon")
		return
	}

	s.logger.Debug().
		Str("stream", string(beacon.Stream)).
		Int("queue_depth", beacon.QueueDepth).
		Int("vehicles", beacon.Vehicles).
		Msg("Status beacon published")
}
