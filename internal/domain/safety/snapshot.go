package safety

import "time"

// Snapshot captures the latched symptom states and derived fault states at a
// point in time. It is what the state repository persists between restarts.
type Snapshot struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// Symptoms maps symptom id to its latched tri-state.
	Symptoms map[string]TriState `json:"symptoms"`
	// Faults maps fault id to its derived tri-state.
	Faults map[string]TriState `json:"faults"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := &Snapshot{
		Timestamp: s.Timestamp,
		Symptoms:  make(map[string]TriState, len(s.Symptoms)),
		Faults:    make(map[string]TriState, len(s.Faults)),
	}

	for id, state := range s.Symptoms {
		cloned.Symptoms[id] = state
	}

	for id, state := range s.Faults {
		cloned.Faults[id] = state
	}

	return cloned
}
