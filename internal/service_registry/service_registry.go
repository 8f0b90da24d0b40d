package service_registry

import (
	"errors"
	"fmt"

	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rento-fleet/fleet-tracker/internal/services"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/internal/utils"
	"github.com/rento-fleet/fleet-tracker/internal/view"
	"github.com/rento-fleet/fleet-tracker/pkg/credential"
	"github.com/rento-fleet/fleet-tracker/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is the interface every long-lived tracker component exposes.
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of the tracking services: they
// start in dependency order and stop in reverse, and a failed start
// rolls back whatever already started.
type ServiceRegistry struct {
	services    map[string]Service
	serviceKeys []string

	mqttClient  mqtt.MQTTClient
	credentials credential.ManagerInterface
	queue       *tracking.ReportQueue
	store       *tracking.Store
	adapter     render.Adapter
	reconciler  *view.Reconciler
	sessionID   string
	Logger      zerolog.Logger

	stream     *services.StreamService
	dispatcher *services.DispatcherService
	roster     *services.RosterService
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, credentials credential.ManagerInterface,
	queue *tracking.ReportQueue, store *tracking.Store, adapter render.Adapter,
	reconciler *view.Reconciler, sessionID string, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:    make(map[string]Service),
		mqttClient:  mqttClient,
		credentials: credentials,
		queue:       queue,
		store:       store,
		adapter:     adapter,
		reconciler:  reconciler,
		sessionID:   sessionID,
		Logger:      logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers the tracking services in
// dependency order: roster and reconciler before the dispatcher that
// feeds them, the stream subscriber last so the pipeline is ready when
// the first frame lands.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "roster",
			enabled: config.Roster.Enabled,
			constructor: func() (Service, error) {
				sr.roster = services.NewRosterService(
					config.Roster.Endpoint,
					config.RosterInterval(),
					sr.credentials,
					sr.store,
					sr.Logger,
				)
				return sr.roster, nil
			},
		},
		{
			name:    "view",
			enabled: true,
			constructor: func() (Service, error) {
				return sr.reconciler, nil
			},
		},
		{
			name:    "dispatcher",
			enabled: true,
			constructor: func() (Service, error) {
				var labels services.LabelResolver = noLabels{}
				if sr.roster != nil {
					labels = sr.roster
				}
				sr.dispatcher = services.NewDispatcherService(
					config.DrainInterval(),
					config.SnapshotInterval(),
					config.DrainPerTick(),
					sr.queue,
					sr.store,
					labels,
					sr.adapter,
					sr.reconciler,
					sr.Logger,
				)
				return sr.dispatcher, nil
			},
		},
		{
			name:    "reaper",
			enabled: true,
			constructor: func() (Service, error) {
				return services.NewReaperService(
					config.ReaperInterval(),
					config.MarkerWindow(),
					config.PathWindow(),
					sr.store,
					sr.adapter,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "stream",
			enabled: true,
			constructor: func() (Service, error) {
				sr.stream = services.NewStreamService(
					config.Stream.PositionTopic,
					config.Stream.HeartbeatTopic,
					config.Stream.QOS,
					sr.credentials,
					sr.mqttClient,
					sr.queue,
					sr.Logger,
				)
				return sr.stream, nil
			},
		},
		{
			name:    "status",
			enabled: config.Status.Enabled,
			constructor: func() (Service, error) {
				return services.NewStatusService(
					config.Status.Topic,
					config.StatusInterval(),
					config.Stream.QOS,
					sr.sessionID,
					sr.stream,
					sr.dispatcher,
					sr.store,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
	}

	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// Roster returns the roster service, nil when disabled.
func (sr *ServiceRegistry) Roster() *services.RosterService {
	return sr.roster
}

// Stream returns the stream service once registered.
func (sr *ServiceRegistry) Stream() *services.StreamService {
	return sr.stream
}

// noLabels is the label resolver used when the roster poller is
// disabled; markers render unlabeled.
type noLabels struct{}

func (noLabels) Label(string) string { return "" }
