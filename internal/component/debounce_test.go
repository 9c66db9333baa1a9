package component

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	safety "home-safety-monitor/internal/domain/safety"
)

// fakeSink records set/clear calls and serves latched states in memory.
type fakeSink struct {
	states map[string]safety.TriState
	sets   int
	clears int
}

func newFakeSink(ids ...string) *fakeSink {
	states := make(map[string]safety.TriState, len(ids))
	for _, id := range ids {
		states[id] = safety.NotTested
	}

	return &fakeSink{states: states}
}

func (s *fakeSink) SetSymptom(_ context.Context, id string, _ safety.AdditionalInfo) error {
	s.states[id] = safety.Set
	s.sets++

	return nil
}

func (s *fakeSink) ClearSymptom(_ context.Context, id string, _ safety.AdditionalInfo) error {
	s.states[id] = safety.Cleared
	s.clears++

	return nil
}

func (s *fakeSink) CheckSymptom(id string) (safety.TriState, error) {
	state, ok := s.states[id]
	if !ok {
		return safety.NotTested, safetyUnknownErr(id)
	}

	return state, nil
}

func safetyUnknownErr(id string) error {
	return &unknownSymptomError{id: id}
}

type unknownSymptomError struct {
	id string
}

func (e *unknownSymptomError) Error() string {
	return "unknown symptom id: " + e.id
}

// TestDebounceSteps exercises the counter arithmetic and the clamping.
func TestDebounceSteps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		counter   int
		condition bool
		limit     int
		want      Result
	}{
		{"advance without crossing", 0, true, 3, Result{NoAction, 1}},
		{"raise at limit", 2, true, 3, Result{RaiseSymptom, 3}},
		{"clamped at limit", 3, true, 3, Result{RaiseSymptom, 3}},
		{"retreat without crossing", 0, false, 3, Result{NoAction, -1}},
		{"heal at negative limit", -2, false, 3, Result{HealSymptom, -3}},
		{"clamped at negative limit", -3, false, 3, Result{HealSymptom, -3}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Debounce(tc.counter, tc.condition, tc.limit))
		})
	}
}

// TestDebouncerRaisesAfterConfirmation checks that a fresh mechanism needs the
// configured number of consecutive confirmations before latching.
func TestDebouncerRaisesAfterConfirmation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := newFakeSink("RiskyTemperatureOffice")
	debouncer := NewDebouncer(2)

	// First confirmation: counter moves from its initial bias to the limit.
	forced, err := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", true, nil)
	require.NoError(t, err)
	require.False(t, forced)
	require.Equal(t, 1, sink.sets)
	require.Equal(t, safety.Set, sink.states["RiskyTemperatureOffice"])
}

// TestDebouncerHealsSlowly verifies a latched symptom needs the full
// confirmation run in the opposite direction before clearing.
func TestDebouncerHealsSlowly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := newFakeSink("RiskyTemperatureOffice")
	debouncer := NewDebouncer(2)

	_, err := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", true, nil)
	require.NoError(t, err)
	require.Equal(t, safety.Set, sink.states["RiskyTemperatureOffice"])

	// The condition goes away: counter walks 2 -> 1 -> 0 -> -1 -> -2.
	for i := 0; i < 3; i++ {
		forced, processErr := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", false, nil)
		require.NoError(t, processErr)
		require.True(t, forced)
		require.Equal(t, safety.Set, sink.states["RiskyTemperatureOffice"])
	}

	forced, err := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", false, nil)
	require.NoError(t, err)
	require.False(t, forced)
	require.Equal(t, 1, sink.clears)
	require.Equal(t, safety.Cleared, sink.states["RiskyTemperatureOffice"])
}

// TestDebouncerSkipsAgreedState ensures no counter movement happens while the
// latched state already agrees with the observed condition.
func TestDebouncerSkipsAgreedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := newFakeSink("RiskyTemperatureOffice")
	debouncer := NewDebouncer(2)

	_, err := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", true, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sink.sets)

	// Condition still true and symptom already SET: nothing to do.
	forced, err := debouncer.Process(ctx, sink, "RiskyTemperatureOffice", true, nil)
	require.NoError(t, err)
	require.False(t, forced)
	require.Equal(t, 1, sink.sets)
}

// TestDebouncerUnknownSymptom propagates sink errors.
func TestDebouncerUnknownSymptom(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	debouncer := NewDebouncer(2)

	_, err := debouncer.Process(context.Background(), sink, "NoSuchSymptom", true, nil)
	require.Error(t, err)
}
