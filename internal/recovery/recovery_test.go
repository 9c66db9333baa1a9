package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	safety "home-safety-monitor/internal/domain/safety"
)

func TestHandleRunsBoundAction(t *testing.T) {
	t.Parallel()

	var got safety.AdditionalInfo

	symptom := &safety.Symptom{
		ID: "RiskyTemperatureOffice",
		RecoverAction: safety.RecoveryAction{
			Type:   "ManipulateWindowInRoom",
			Params: map[string]string{"location": "Office"},
			Run: func(_ context.Context, _ *safety.Symptom, info safety.AdditionalInfo) error {
				got = info

				return nil
			},
		},
	}

	err := New().Handle(context.Background(), symptom,
		safety.AdditionalInfo{"cause": "low temperature"})
	require.NoError(t, err)

	// Static parameters and observation info are merged.
	require.Equal(t, "Office", got["location"])
	require.Equal(t, "low temperature", got["cause"])
}

func TestHandleObservationInfoWins(t *testing.T) {
	t.Parallel()

	var got safety.AdditionalInfo

	symptom := &safety.Symptom{
		ID: "RiskyTemperatureOffice",
		RecoverAction: safety.RecoveryAction{
			Params: map[string]string{"location": "Office"},
			Run: func(_ context.Context, _ *safety.Symptom, info safety.AdditionalInfo) error {
				got = info

				return nil
			},
		},
	}

	err := New().Handle(context.Background(), symptom,
		safety.AdditionalInfo{"location": "Hallway"})
	require.NoError(t, err)
	require.Equal(t, "Hallway", got["location"])
}

func TestHandleWithoutBinding(t *testing.T) {
	t.Parallel()

	manager := New()

	require.NoError(t, manager.Handle(context.Background(), &safety.Symptom{ID: "X"}, nil))
	require.NoError(t, manager.Handle(context.Background(), nil, nil))
}

func TestHandleWrapsActionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("actuator unreachable")
	symptom := &safety.Symptom{
		ID: "RiskyTemperatureOffice",
		RecoverAction: safety.RecoveryAction{
			Type: "ManipulateWindowInRoom",
			Run: func(context.Context, *safety.Symptom, safety.AdditionalInfo) error {
				return boom
			},
		},
	}

	err := New().Handle(context.Background(), symptom, nil)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "RiskyTemperatureOffice")
}
