package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full safety-monitor configuration: the fault catalog, the
// monitored rooms, the host-runtime connection and the runtime knobs.
type Config struct {
	// LogLevel is the minimum level emitted by the logger.
	LogLevel string `yaml:"log_level"`
	// ListenAddress is the HTTP API listen socket.
	ListenAddress string `yaml:"listen_address"`
	// StateFile is the path to the JSON file storing latched states.
	StateFile string `yaml:"state_file"`
	// EvaluationInterval is the period of the mechanism evaluation loop.
	EvaluationInterval time.Duration `yaml:"evaluation_interval"`
	// DebounceLimit is the number of consecutive confirmations a mechanism
	// needs before its symptom latches or heals.
	DebounceLimit int `yaml:"debounce_limit"`
	// OutsideTemperatureSensor is the outside temperature entity consulted by
	// window recovery. Optional; recovery degrades to logging without it.
	OutsideTemperatureSensor string `yaml:"outside_temperature_sensor"`
	// HomeAssistant is the optional host-runtime connection. Without it the
	// monitor runs with a null runtime, useful for configuration checks.
	HomeAssistant *HomeAssistantConfig `yaml:"home_assistant"`
	// Notification configures the alerting entities.
	Notification NotificationConfig `yaml:"notification"`
	// Faults is the fault catalog keyed by fault id.
	Faults map[string]FaultConfig `yaml:"faults"`
	// TemperatureRooms lists the rooms monitored by the temperature component.
	TemperatureRooms []TemperatureRoomConfig `yaml:"temperature_rooms"`
}

// HomeAssistantConfig is the REST connection to the host runtime.
type HomeAssistantConfig struct {
	// BaseURL is the runtime's API root, e.g. "http://homeassistant.local:8123".
	BaseURL string `yaml:"base_url"`
	// Token is the long-lived access token.
	Token string `yaml:"token"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationConfig names the entities used for alerting.
type NotificationConfig struct {
	// LightEntity is the warning light toggled on fault transitions.
	LightEntity string `yaml:"light_entity"`
	// SirenEntity is the siren toggled for the most severe faults.
	SirenEntity string `yaml:"siren_entity"`
}

// FaultConfig describes one catalog entry. The severity may be configured
// under either the "level" or the legacy "priority" key.
type FaultConfig struct {
	// Name is the display name; defaults to the catalog key.
	Name string
	// Level is the severity, 1 being the most severe.
	Level int
	// RelatedMechanisms lists the safety mechanism names whose symptoms feed
	// this fault.
	RelatedMechanisms []string
}

// TemperatureRoomConfig is one room entry for the temperature component.
type TemperatureRoomConfig struct {
	// Room is the location name.
	Room string `yaml:"room"`
	// TemperatureSensor is the room temperature entity.
	TemperatureSensor string `yaml:"temperature_sensor"`
	// TemperatureRateSensor is the optional temperature-rate entity enabling
	// the forecast mechanism.
	TemperatureRateSensor string `yaml:"temperature_rate_sensor"`
	// WindowActuator is the optional window actuator used by recovery.
	WindowActuator string `yaml:"window_actuator"`
	// LowTemperatureThreshold is the risky-temperature threshold in degrees.
	LowTemperatureThreshold float64 `yaml:"low_temperature_threshold"`
	// ForecastSpanHours is the forecast horizon in hours.
	ForecastSpanHours float64 `yaml:"forecast_span_hours"`
}

const (
	// DefaultConfigFilename is the default configuration filename.
	DefaultConfigFilename = "safety-monitor.yaml"

	// DefaultStateFilename is the default latched-state JSON filename.
	DefaultStateFilename = "safety-monitor-state.json"

	// DefaultListenAddress is the default HTTP API socket.
	DefaultListenAddress = "localhost:8086"

	// DefaultEvaluationInterval is the default evaluation loop period.
	DefaultEvaluationInterval = 30 * time.Second

	// DefaultDebounceLimit is the default confirmation count.
	DefaultDebounceLimit = 2

	// DefaultHomeAssistantTimeout is the default per-request timeout for the
	// host runtime.
	DefaultHomeAssistantTimeout = 5 * time.Second
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoFaults is returned when the fault catalog is empty.
	errNoFaults = errors.New("at least one fault must be configured")
	// errLevelConflict is returned when both severity keys are set to
	// different values.
	errLevelConflict = errors.New(`"level" and "priority" disagree`)
	// errTokenRequired is returned when a runtime URL is set without a token.
	errTokenRequired = errors.New("home_assistant token must be provided")
)

// faultConfigKeys is the accepted key set for a fault catalog entry,
// checked manually because the custom unmarshaler bypasses strict decoding.
var faultConfigKeys = map[string]struct{}{
	"name":        {},
	"level":       {},
	"priority":    {},
	"related_sms": {},
}

// UnmarshalYAML decodes a catalog entry, accepting the severity under either
// "level" or the legacy "priority" key and rejecting unknown keys.
func (f *FaultConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("fault entry must be a mapping, got %s", value.Tag)
	}

	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if _, ok := faultConfigKeys[key]; !ok {
			return fmt.Errorf("fault entry: unknown key %q", key)
		}
	}

	var raw struct {
		Name              string   `yaml:"name"`
		Level             *int     `yaml:"level"`
		Priority          *int     `yaml:"priority"`
		RelatedMechanisms []string `yaml:"related_sms"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Level != nil && raw.Priority != nil && *raw.Level != *raw.Priority {
		return errLevelConflict
	}

	f.Name = raw.Name
	f.RelatedMechanisms = raw.RelatedMechanisms

	switch {
	case raw.Level != nil:
		f.Level = *raw.Level
	case raw.Priority != nil:
		f.Level = *raw.Priority
	}

	return nil
}

// Load reads configuration from the provided path, applies defaults and
// validates it. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	cfg, err := Parse(contents)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes and validates configuration from raw YAML.
func Parse(contents []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields, fills defaults and normalizes the catalog.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.EvaluationInterval <= 0 {
		cfg.EvaluationInterval = DefaultEvaluationInterval
	}

	if cfg.DebounceLimit <= 0 {
		cfg.DebounceLimit = DefaultDebounceLimit
	}

	if len(cfg.Faults) == 0 {
		return errNoFaults
	}

	for id, fault := range cfg.Faults {
		if fault.Name == "" {
			fault.Name = id
		}

		if fault.Level <= 0 {
			return fmt.Errorf("fault %q: level must be a positive integer", id)
		}

		if len(fault.RelatedMechanisms) == 0 {
			return fmt.Errorf("fault %q: related_sms must not be empty", id)
		}

		cfg.Faults[id] = fault
	}

	for i, room := range cfg.TemperatureRooms {
		if room.Room == "" {
			return fmt.Errorf("temperature room #%d: room name must be provided", i+1)
		}

		if room.TemperatureSensor == "" {
			return fmt.Errorf("temperature room %q: temperature_sensor must be provided", room.Room)
		}
	}

	if cfg.HomeAssistant != nil {
		if err := validateHomeAssistant(cfg.HomeAssistant); err != nil {
			return err
		}
	}

	return nil
}

func validateHomeAssistant(ha *HomeAssistantConfig) error {
	if _, err := url.ParseRequestURI(ha.BaseURL); err != nil {
		return fmt.Errorf("invalid home_assistant base URL: %w", err)
	}

	if ha.Token == "" {
		return errTokenRequired
	}

	if ha.Timeout <= 0 {
		ha.Timeout = DefaultHomeAssistantTimeout
	}

	return nil
}

// FaultIDs returns the catalog keys in stable order.
func (c *Config) FaultIDs() []string {
	ids := make([]string, 0, len(c.Faults))
	for id := range c.Faults {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
