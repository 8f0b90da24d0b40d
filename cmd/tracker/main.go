package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/render"
	"github.com/rento-fleet/fleet-tracker/internal/service_registry"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/rento-fleet/fleet-tracker/internal/utils"
	"github.com/rento-fleet/fleet-tracker/internal/view"
	"github.com/rento-fleet/fleet-tracker/internal/wshub"
	"github.com/rento-fleet/fleet-tracker/pkg/credential"
	"github.com/rento-fleet/fleet-tracker/pkg/file"
	"github.com/rento-fleet/fleet-tracker/pkg/geocode"
	"github.com/rento-fleet/fleet-tracker/pkg/mqtt"
	"github.com/rs/zerolog"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler and load configuration
	fileClient := file.NewFileService()
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// One stream connection per session, identified uniquely
	sessionID := config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("session_id", sessionID).Msg("Using stream session ID")

	// Load the session credential; a missing token is surfaced by the
	// stream service as an unauthenticated status, not a startup failure.
	credentials := credential.NewManager(config.Credential.TokenFile, fileClient)
	if err := credentials.Load(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load stream credential")
	}

	// Prepare the stream transport; the connection itself is opened by
	// the stream service only when a credential is available.
	mqttClient := mqtt.NewMqttService(fileClient)
	err = mqttClient.Initialize(config.MQTT.Broker, sessionID, config.MQTT.Username,
		credentials.Token(), config.MQTT.CACertificate)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize stream transport")
	}

	// Core state: ingestion queue and track store
	queue := tracking.NewReportQueue()
	store := tracking.NewStore(config.DuplicateEpsilon())

	// Render boundary: websocket hub when enabled, otherwise headless
	var adapter render.Adapter = render.NopAdapter{}
	var hub *wshub.Hub
	if config.Render.WebSocket.Enabled {
		hub = wshub.NewHub(logger)
		adapter = hub
	}

	// Optional reverse geocoding for the focused vehicle
	var resolver view.AddressResolver
	if config.Geocode.Enabled {
		provider, err := geocode.NewGoogleProvider(config.Geocode.MapsAPIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create geocoding provider")
		}
		resolver = provider
	}

	// View-state reconciler over the default camera
	centerLat, centerLng := config.DefaultCenter()
	machine := view.NewMachine(view.SystemClock{}, config.PanCooldown(), config.FocusGrace(),
		models.ViewState{
			Center: models.TrackPoint{Latitude: centerLat, Longitude: centerLng},
			Zoom:   config.DefaultZoom(),
		})
	reconciler := view.NewReconciler(machine, adapter, store, resolver, logger)
	if hub != nil {
		hub.SetSink(reconciler)
	}

	// Create a new service registry and register the tracking services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, credentials,
		queue, store, adapter, reconciler, sessionID, logger)
	if err := serviceRegistry.RegisterServices(config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Client-driven focus, search, and trip deep links enter through the
	// hub; the roster reports its visible set back the same way.
	if roster := serviceRegistry.Roster(); roster != nil {
		roster.SetSelector(reconciler)
		if hub != nil {
			roster.SetVisibleSink(hub)
			hub.SetRoster(roster)
		}
	}
	if hub != nil {
		hub.SetSelector(reconciler)
	}

	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Serve the map client hub when enabled
	if hub != nil {
		go func() {
			http.Handle("/live", hub)
			logger.Info().Str("addr", config.Render.WebSocket.ListenAddr).Msg("Map client hub listening")
			if err := http.ListenAndServe(config.Render.WebSocket.ListenAddr, nil); err != nil {
				logger.Error().Err(err).Msg("Map client hub stopped")
			}
		}()
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Shutdown finished with service stop failures")
	}
}
