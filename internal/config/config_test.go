package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validConfig = `
log_level: debug
listen_address: "localhost:8086"
state_file: "/var/lib/safety-monitor/state.json"
evaluation_interval: 15s
debounce_limit: 3
outside_temperature_sensor: sensor.outside_temperature
notification:
  light_entity: light.warning
  siren_entity: siren.alarm
faults:
  RiskyTemperatureOffice:
    name: RiskyTemperatureOffice
    level: 2
    related_sms: [sm_tc_1, sm_tc_2]
temperature_rooms:
  - room: Office
    temperature_sensor: sensor.office_temperature
    temperature_rate_sensor: sensor.office_temperature_rate
    window_actuator: switch.office_window
    low_temperature_threshold: 18.0
    forecast_span_hours: 2.0
`

func TestParseValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 15*time.Second, cfg.EvaluationInterval)
	require.Equal(t, 3, cfg.DebounceLimit)
	require.Equal(t, "light.warning", cfg.Notification.LightEntity)

	fault, ok := cfg.Faults["RiskyTemperatureOffice"]
	require.True(t, ok)
	require.Equal(t, 2, fault.Level)
	require.Equal(t, []string{"sm_tc_1", "sm_tc_2"}, fault.RelatedMechanisms)

	require.Len(t, cfg.TemperatureRooms, 1)
	require.InDelta(t, 18.0, cfg.TemperatureRooms[0].LowTemperatureThreshold, 1e-9)
}

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
faults:
  SomeFault:
    level: 1
    related_sms: [sm_x]
`))
	require.NoError(t, err)

	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, DefaultStateFilename, cfg.StateFile)
	require.Equal(t, DefaultEvaluationInterval, cfg.EvaluationInterval)
	require.Equal(t, DefaultDebounceLimit, cfg.DebounceLimit)
}

// TestParsePriorityAlias checks the legacy severity key is accepted.
func TestParsePriorityAlias(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
faults:
  SomeFault:
    priority: 3
    related_sms: [sm_x]
`))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Faults["SomeFault"].Level)
}

func TestParseLevelPriorityConflict(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
faults:
  SomeFault:
    level: 1
    priority: 2
    related_sms: [sm_x]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "disagree")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
	}{
		{
			"top level",
			`
unexpected: true
faults:
  SomeFault:
    level: 1
    related_sms: [sm_x]
`,
		},
		{
			"fault entry",
			`
faults:
  SomeFault:
    level: 1
    related_sms: [sm_x]
    severity: high
`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.contents))
			require.Error(t, err)
		})
	}
}

func TestValidateRejectsBadCatalog(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
	}{
		{"empty catalog", `listen_address: "localhost:8086"`},
		{
			"missing level",
			`
faults:
  SomeFault:
    related_sms: [sm_x]
`,
		},
		{
			"empty mechanisms",
			`
faults:
  SomeFault:
    level: 1
    related_sms: []
`,
		},
		{
			"room without sensor",
			`
faults:
  SomeFault:
    level: 1
    related_sms: [sm_x]
temperature_rooms:
  - room: Office
`,
		},
		{
			"runtime without token",
			`
faults:
  SomeFault:
    level: 1
    related_sms: [sm_x]
home_assistant:
  base_url: http://homeassistant.local:8123
`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.contents))
			require.Error(t, err)
		})
	}
}

func TestValidateDefaultsFaultName(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
faults:
  UnattendedBathroomHeat:
    level: 1
    related_sms: [sm_hc_1]
`))
	require.NoError(t, err)
	require.Equal(t, "UnattendedBathroomHeat", cfg.Faults["UnattendedBathroomHeat"].Name)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "localhost:8086", cfg.ListenAddress)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFaultIDsSorted(t *testing.T) {
	t.Parallel()

	cfg := &Config{Faults: map[string]FaultConfig{
		"B": {}, "A": {}, "C": {},
	}}

	require.Equal(t, []string{"A", "B", "C"}, cfg.FaultIDs())
}
