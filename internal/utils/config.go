package utils

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rento-fleet/fleet-tracker/internal/constants"
	"github.com/rento-fleet/fleet-tracker/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker" validate:"required"`          // Stream broker address
		ClientID      string `yaml:"client_id" validate:"required"`       // Base client ID, suffixed per session
		Username      string `yaml:"username"`                            // Optional broker username
		CACertificate string `yaml:"ca_certificate"`                      // Path to the CA certificate, empty for plain TCP
	} `yaml:"mqtt"`

	Credential struct {
		TokenFile string `yaml:"token_file"` // Path to the session credential token file
	} `yaml:"credential"`

	Stream struct {
		PositionTopic  string `yaml:"position_topic" validate:"required"` // Topic carrying position report frames
		HeartbeatTopic string `yaml:"heartbeat_topic"`                    // Topic carrying heartbeat frames (ignored payloads)
		QOS            int    `yaml:"qos" validate:"min=0,max=2"`         // QoS level for stream subscriptions
	} `yaml:"stream"`

	Dispatcher struct {
		DrainIntervalMs    int `yaml:"drain_interval_ms" validate:"min=0"`    // Queue drain tick period
		SnapshotIntervalMs int `yaml:"snapshot_interval_ms" validate:"min=0"` // Render-snapshot tick period
		DrainPerTick       int `yaml:"drain_per_tick" validate:"min=0"`       // Reports popped per drain tick
	} `yaml:"dispatcher"`

	Tracking struct {
		DuplicateEpsilon     float64 `yaml:"duplicate_epsilon" validate:"min=0"`  // Per-axis duplicate suppression, degrees
		MarkerWindowSeconds  int     `yaml:"marker_window_seconds" validate:"min=0"`
		PathWindowSeconds    int     `yaml:"path_window_seconds" validate:"min=0"`
		ReaperIntervalMs     int     `yaml:"reaper_interval_ms" validate:"min=0"`
	} `yaml:"tracking"`

	View struct {
		CenterLatitude  float64 `yaml:"center_latitude"`  // Default camera center
		CenterLongitude float64 `yaml:"center_longitude"`
		Zoom            int     `yaml:"zoom"`
		PanCooldownMs   int     `yaml:"pan_cooldown_ms" validate:"min=0"` // Programmatic-move override suppression
		FocusGraceMs    int     `yaml:"focus_grace_ms" validate:"min=0"`  // Delay before the focused "no data" hint
	} `yaml:"view"`

	Roster struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint" validate:"required_if=Enabled true,omitempty,url"` // Active-vehicle list endpoint
		IntervalSeconds int    `yaml:"interval_seconds" validate:"min=0"`
	} `yaml:"roster"`

	Geocode struct {
		Enabled    bool   `yaml:"enabled"`
		MapsAPIKey string `yaml:"maps_api_key" validate:"required_if=Enabled true"` // Google Maps API key
	} `yaml:"geocode"`

	Status struct {
		Enabled         bool   `yaml:"enabled"`
		Topic           string `yaml:"topic" validate:"required_if=Enabled true"` // Topic the status beacon publishes to
		IntervalSeconds int    `yaml:"interval_seconds" validate:"min=0"`
	} `yaml:"status"`

	Render struct {
		WebSocket struct {
			Enabled    bool   `yaml:"enabled"`
			ListenAddr string `yaml:"listen_addr" validate:"required_if=Enabled true"` // Address the map client hub listens on
		} `yaml:"websocket"`
	} `yaml:"render"`
}

// LoadConfig loads the YAML configuration from the specified file and
// validates it. It returns a pointer to the Config struct and an error
// if loading or validation fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// The accessors below fall back to the reference defaults when a field
// is left at zero, so a minimal config file stays minimal.

func (c *Config) DrainInterval() time.Duration {
	return millisOrDefault(c.Dispatcher.DrainIntervalMs, constants.DefaultDrainInterval)
}

func (c *Config) SnapshotInterval() time.Duration {
	return millisOrDefault(c.Dispatcher.SnapshotIntervalMs, constants.DefaultSnapshotInterval)
}

func (c *Config) DrainPerTick() int {
	if c.Dispatcher.DrainPerTick <= 0 {
		return constants.DefaultDrainPerTick
	}
	return c.Dispatcher.DrainPerTick
}

func (c *Config) DuplicateEpsilon() float64 {
	if c.Tracking.DuplicateEpsilon <= 0 {
		return constants.DuplicateEpsilon
	}
	return c.Tracking.DuplicateEpsilon
}

func (c *Config) MarkerWindow() time.Duration {
	return secondsOrDefault(c.Tracking.MarkerWindowSeconds, constants.DefaultMarkerWindow)
}

func (c *Config) PathWindow() time.Duration {
	return secondsOrDefault(c.Tracking.PathWindowSeconds, constants.DefaultPathWindow)
}

func (c *Config) ReaperInterval() time.Duration {
	return millisOrDefault(c.Tracking.ReaperIntervalMs, constants.DefaultReaperInterval)
}

func (c *Config) PanCooldown() time.Duration {
	return millisOrDefault(c.View.PanCooldownMs, constants.DefaultPanCooldown)
}

func (c *Config) FocusGrace() time.Duration {
	return millisOrDefault(c.View.FocusGraceMs, constants.DefaultFocusGrace)
}

func (c *Config) RosterInterval() time.Duration {
	return secondsOrDefault(c.Roster.IntervalSeconds, constants.DefaultRosterInterval)
}

func (c *Config) StatusInterval() time.Duration {
	return secondsOrDefault(c.Status.IntervalSeconds, constants.DefaultStatusInterval)
}

func (c *Config) DefaultCenter() (float64, float64) {
	if c.View.CenterLatitude == 0 && c.View.CenterLongitude == 0 {
		return constants.DefaultCenterLatitude, constants.DefaultCenterLongitude
	}
	return c.View.CenterLatitude, c.View.CenterLongitude
}

func (c *Config) DefaultZoom() int {
	if c.View.Zoom <= 0 {
		return constants.DefaultZoom
	}
	return c.View.Zoom
}

func millisOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func secondsOrDefault(s int, fallback time.Duration) time.Duration {
	if s <= 0 {
		return fallback
	}
	return time.Duration(s) * time.Second
}
