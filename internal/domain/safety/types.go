package safety

import (
	"context"
	"fmt"
)

// TriState is the latched observation value of a symptom or the derived state
// of a fault. NotTested is distinct from Cleared so that a fault never reports
// "all clear" before any sensor data has been processed.
type TriState int

const (
	// NotTested is the initial state before any evaluation took place.
	NotTested TriState = iota
	// Set indicates the condition has been detected and is still present.
	Set
	// Cleared indicates the condition was evaluated and found absent.
	Cleared
)

// String renders the state in the configuration/reporting notation.
func (s TriState) String() string {
	switch s {
	case NotTested:
		return "NOT_TESTED"
	case Set:
		return "SET"
	case Cleared:
		return "CLEARED"
	default:
		return fmt.Sprintf("TriState(%d)", int(s))
	}
}

// MarshalText encodes the state as its string form for JSON/YAML snapshots.
func (s TriState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the string form produced by MarshalText.
func (s *TriState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NOT_TESTED":
		*s = NotTested
	case "SET":
		*s = Set
	case "CLEARED":
		*s = Cleared
	default:
		return fmt.Errorf("unknown tri-state %q", string(text))
	}

	return nil
}

// SMState is the lifecycle state of a symptom's safety mechanism.
type SMState int

const (
	// Disabled means the mechanism is constructed but not yet observing.
	Disabled SMState = iota
	// Enabled means the mechanism is active and its symptom may latch.
	Enabled
)

// String renders the lifecycle state for logs and API responses.
func (s SMState) String() string {
	switch s {
	case Disabled:
		return "DISABLED"
	case Enabled:
		return "ENABLED"
	default:
		return fmt.Sprintf("SMState(%d)", int(s))
	}
}

// AdditionalInfo is opaque diagnostic metadata attached to set/clear calls.
// It is passed through to logging and notifications unchanged and never
// interpreted by the aggregation logic.
type AdditionalInfo map[string]string

// Module is the owning safety component of a symptom. The concrete evaluator
// lives outside the fault-management core; the core only needs its identity.
type Module interface {
	// ComponentName identifies the component type (e.g. "TemperatureComponent").
	ComponentName() string
}

// RecoveryFunc is a recovery procedure exposed by a safety component.
type RecoveryFunc func(ctx context.Context, symptom *Symptom, info AdditionalInfo) error

// RecoveryAction binds a symptom to the recovery procedure of its owning
// component. The fault-management core verifies the binding at construction
// but never invokes it; dispatch belongs to the recovery manager.
type RecoveryAction struct {
	// Type names the kind of corrective measure (e.g. "ManipulateWindowInRoom").
	Type string
	// Params carries static parameters for the procedure, such as the room.
	Params map[string]string
	// Run is the bound procedure reference.
	Run RecoveryFunc
}

// Symptom is a named, latched observation of one physical condition in one
// location. Symptoms are constructed once at initialization by their owning
// component and persist for the process lifetime.
type Symptom struct {
	// ID is the unique registry key, e.g. "RiskyTemperatureOffice".
	ID string
	// Name is the display name; equal to ID in the current design.
	Name string
	// SMName is the safety-mechanism identifier (e.g. "sm_tc_1") linking this
	// symptom to the fault that aggregates it. Not unique: several rooms share
	// one SMName.
	SMName string
	// Module references the owning safety component instance. Several symptoms
	// share one module; the module outlives all of them.
	Module Module
	// Parameters holds the calibrated configuration values the module's
	// evaluation logic consumes. The concrete type is owned by the module.
	Parameters any
	// RecoverAction is the recovery procedure bound at construction.
	RecoverAction RecoveryAction
	// SMState is the mechanism lifecycle state.
	SMState SMState
	// Latched is the tri-state observation value.
	Latched TriState
}

// Clone returns a copy of the symptom to avoid leaking internal references.
// Module, Parameters and the recovery binding are shared by design.
func (s *Symptom) Clone() *Symptom {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Fault is a user-facing aggregate condition derived from one or more symptoms
// sharing a safety-mechanism identifier.
type Fault struct {
	// ID is the unique registry key, e.g. "RiskyTemperature".
	ID string
	// Name is the display name shown in notifications.
	Name string
	// Level is the notification severity. Historical configurations name this
	// field "level" or "priority"; both mean the same thing.
	Level int
	// RelatedMechanisms lists the safety-mechanism identifiers (SMName values,
	// not symptom ids) this fault aggregates.
	RelatedMechanisms []string
	// State is derived from the contributing symptoms and never set directly.
	State TriState
}

// Clone returns a copy of the fault with its own related-mechanisms slice.
func (f *Fault) Clone() *Fault {
	if f == nil {
		return nil
	}

	cloned := *f
	cloned.RelatedMechanisms = append([]string(nil), f.RelatedMechanisms...)

	return &cloned
}
