package component

import (
	"context"

	safety "home-safety-monitor/internal/domain/safety"
)

// Reader provides sensor values from the host runtime. The core never reads
// sensors itself; every evaluation goes through this boundary.
type Reader interface {
	// ReadFloat returns the numeric state of the entity.
	ReadFloat(ctx context.Context, entityID string) (float64, error)
}

// Writer writes entity states back to the host runtime, e.g. when a recovery
// procedure commands a window actuator.
type Writer interface {
	WriteState(ctx context.Context, entityID, state string, attributes map[string]string) error
}

// Observation is the outcome of one mechanism evaluation.
type Observation struct {
	// Condition is true while the unsafe condition holds.
	Condition bool
	// Info is diagnostic metadata forwarded to set/clear calls, e.g. the room.
	Info safety.AdditionalInfo
}

// Module is the evaluator interface a safety component exposes to the
// evaluation loop. It extends the identity-only view the fault-management
// core keeps of a component.
type Module interface {
	safety.Module

	// Symptoms returns the symptom set the component constructed from its
	// configuration. The returned symptoms are the registry instances, not
	// copies; the component and the fault manager share them.
	Symptoms() []*safety.Symptom

	// Evaluate decides whether the symptom's condition currently holds.
	Evaluate(ctx context.Context, symptom *safety.Symptom) (Observation, error)
}

// Sink is the slice of the fault manager the debouncer feeds.
type Sink interface {
	SetSymptom(ctx context.Context, symptomID string, info safety.AdditionalInfo) error
	ClearSymptom(ctx context.Context, symptomID string, info safety.AdditionalInfo) error
	CheckSymptom(symptomID string) (safety.TriState, error)
}
