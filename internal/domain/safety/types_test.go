package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTriStateText verifies the textual encoding round-trips and rejects junk.
func TestTriStateText(t *testing.T) {
	t.Parallel()

	for _, state := range []TriState{NotTested, Set, Cleared} {
		text, err := state.MarshalText()
		require.NoError(t, err)

		var decoded TriState

		require.NoError(t, decoded.UnmarshalText(text))
		require.Equal(t, state, decoded)
	}

	var decoded TriState

	require.Error(t, decoded.UnmarshalText([]byte("BROKEN")))
}

// TestSymptomClone verifies that Clone copies the value and handles nil safely.
func TestSymptomClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Symptom)(nil).Clone())

	s := &Symptom{
		ID:      "RiskyTemperatureOffice",
		Name:    "RiskyTemperatureOffice",
		SMName:  "sm_tc_1",
		SMState: Enabled,
		Latched: Set,
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)

	// Mutating the clone must not touch the original.
	c.Latched = Cleared
	require.Equal(t, Set, s.Latched)
}

// TestFaultClone ensures the related-mechanisms slice is not shared.
func TestFaultClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Fault)(nil).Clone())

	f := &Fault{
		ID:                "RiskyTemperature",
		Name:              "Unsafe temperature",
		Level:             2,
		RelatedMechanisms: []string{"sm_tc_1"},
	}

	c := f.Clone()
	require.Equal(t, f, c)

	c.RelatedMechanisms[0] = "sm_tc_9"
	require.Equal(t, "sm_tc_1", f.RelatedMechanisms[0])
}
