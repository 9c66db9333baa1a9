package checkcfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"home-safety-monitor/internal/config"
)

const soundConfig = `
faults:
  RiskyTemperatureOffice:
    level: 2
    related_sms: [sm_tc_1, sm_tc_2]
temperature_rooms:
  - room: Office
    temperature_sensor: sensor.office_temperature
    temperature_rate_sensor: sensor.office_temperature_rate
    low_temperature_threshold: 18.0
    forecast_span_hours: 2.0
`

const orphanConfig = `
faults:
  RiskyTemperatureOffice:
    level: 2
    related_sms: [sm_tc_1]
temperature_rooms:
  - room: Office
    temperature_sensor: sensor.office_temperature
    temperature_rate_sensor: sensor.office_temperature_rate
    low_temperature_threshold: 18.0
    forecast_span_hours: 2.0
`

func TestCheckSoundConfiguration(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(soundConfig))
	require.NoError(t, err)

	report, err := Check(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, report.Faults)
	require.Equal(t, 2, report.Symptoms)
	require.Empty(t, report.Unresolved)
}

func TestCheckReportsOrphanMechanism(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(orphanConfig))
	require.NoError(t, err)

	report, err := Check(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"sm_tc_2"}, report.Unresolved)
}

func TestRunFailsOnDefects(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orphanConfig), 0o600))

	err := Run(context.Background(), &Options{ConfigPath: path})
	require.ErrorIs(t, err, ErrDefectsFound)
}

func TestRunAcceptsSoundConfiguration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(soundConfig), 0o600))

	require.NoError(t, Run(context.Background(), &Options{ConfigPath: path}))
}

func TestRunFailsOnMissingFile(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}
