package monitor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"home-safety-monitor/internal/component"
	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/faultman"
	"home-safety-monitor/internal/recovery"
	repository "home-safety-monitor/internal/repository/state"
)

// scriptedComponent serves one symptom whose condition is set by the test.
type scriptedComponent struct {
	symptom   *safety.Symptom
	condition bool
}

func (c *scriptedComponent) ComponentName() string { return "ScriptedComponent" }

func (c *scriptedComponent) Symptoms() []*safety.Symptom { return []*safety.Symptom{c.symptom} }

func (c *scriptedComponent) Evaluate(context.Context, *safety.Symptom) (component.Observation, error) {
	return component.Observation{
		Condition: c.condition,
		Info:      safety.AdditionalInfo{"location": "Office"},
	}, nil
}

func newLoop(t *testing.T, comp *scriptedComponent) (*evaluationLoop, *faultman.Manager, *int) {
	t.Helper()

	recoveries := 0
	comp.symptom.RecoverAction = safety.RecoveryAction{
		Type: "ManipulateWindowInRoom",
		Run: func(context.Context, *safety.Symptom, safety.AdditionalInfo) error {
			recoveries++

			return nil
		},
	}

	fault := &safety.Fault{
		ID:                "RiskyTemperatureOffice",
		Name:              "RiskyTemperatureOffice",
		Level:             2,
		RelatedMechanisms: []string{comp.symptom.SMName},
	}

	manager, err := faultman.New(context.Background(),
		[]*safety.Fault{fault}, comp.Symptoms())
	require.NoError(t, err)
	manager.EnableAll(context.Background())

	loop := &evaluationLoop{
		manager:    manager,
		components: []component.Module{comp},
		debouncer:  component.NewDebouncer(2),
		recoverer:  recovery.New(),
		repo:       repository.NewFileRepository(filepath.Join(t.TempDir(), "state.json")),
	}

	return loop, manager, &recoveries
}

func TestTickLatchesAndRecovers(t *testing.T) {
	t.Parallel()

	comp := &scriptedComponent{
		symptom: &safety.Symptom{
			ID:     "RiskyTemperatureOffice",
			Name:   "RiskyTemperatureOffice",
			SMName: "sm_tc_1",
		},
		condition: true,
	}

	loop, manager, recoveries := newLoop(t, comp)
	ctx := context.Background()

	loop.tick(ctx)

	state, err := manager.CheckSymptom("RiskyTemperatureOffice")
	require.NoError(t, err)
	require.Equal(t, safety.Set, state)

	faultState, err := manager.CheckFault("RiskyTemperatureOffice")
	require.NoError(t, err)
	require.Equal(t, safety.Set, faultState)

	require.Equal(t, 1, *recoveries)

	// Latched state was persisted.
	snapshot, err := loop.repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.Set, snapshot.Symptoms["RiskyTemperatureOffice"])

	// A second agreeing tick neither re-runs recovery nor rewrites the file.
	loop.tick(ctx)
	require.Equal(t, 1, *recoveries)
}

func TestTickHealsAfterConfirmation(t *testing.T) {
	t.Parallel()

	comp := &scriptedComponent{
		symptom: &safety.Symptom{
			ID:     "RiskyTemperatureOffice",
			Name:   "RiskyTemperatureOffice",
			SMName: "sm_tc_1",
		},
		condition: true,
	}

	loop, manager, _ := newLoop(t, comp)
	ctx := context.Background()

	loop.tick(ctx)

	// The condition goes away: the counter needs four ticks to cross back.
	comp.condition = false
	for i := 0; i < 4; i++ {
		loop.tick(ctx)
	}

	state, err := manager.CheckSymptom("RiskyTemperatureOffice")
	require.NoError(t, err)
	require.Equal(t, safety.Cleared, state)

	faultState, err := manager.CheckFault("RiskyTemperatureOffice")
	require.NoError(t, err)
	require.Equal(t, safety.Cleared, faultState)
}

func TestSnapshotsEqualIgnoresTimestamp(t *testing.T) {
	t.Parallel()

	a := &safety.Snapshot{
		Symptoms: map[string]safety.TriState{"X": safety.Set},
		Faults:   map[string]safety.TriState{"F": safety.Set},
	}
	b := &safety.Snapshot{
		Symptoms: map[string]safety.TriState{"X": safety.Set},
		Faults:   map[string]safety.TriState{"F": safety.Set},
	}

	require.True(t, snapshotsEqual(a, b))

	b.Faults["F"] = safety.Cleared
	require.False(t, snapshotsEqual(a, b))
	require.False(t, snapshotsEqual(nil, a))
	require.True(t, snapshotsEqual(nil, nil))
}
