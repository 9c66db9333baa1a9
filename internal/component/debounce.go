package component

import (
	"context"
	"fmt"

	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/logger"
)

// Action is the outcome of one debounce step.
type Action int

const (
	// NoAction means the counter moved but no threshold was crossed.
	NoAction Action = iota
	// RaiseSymptom means the condition held long enough to latch the symptom.
	RaiseSymptom
	// HealSymptom means the condition was absent long enough to clear it.
	HealSymptom
)

// Result couples the action to take with the updated counter value.
type Result struct {
	// Action determined by the debounce step.
	Action Action
	// Counter is the updated value, clamped to [-limit, limit].
	Counter int
}

const (
	// DefaultDebounceLimit is the number of consecutive confirmations needed
	// before a symptom is raised or healed.
	DefaultDebounceLimit = 2
	// initialCounter biases a fresh mechanism toward its first confirmation.
	initialCounter = 1
)

// Debounce advances the counter toward +limit while the condition holds and
// toward -limit while it does not. Crossing +limit raises, crossing -limit
// heals; anything in between is no action.
func Debounce(counter int, condition bool, limit int) Result {
	if condition {
		next := min(limit, counter+1)

		action := NoAction
		if next >= limit {
			action = RaiseSymptom
		}

		return Result{Action: action, Counter: next}
	}

	next := max(-limit, counter-1)

	action := NoAction
	if next <= -limit {
		action = HealSymptom
	}

	return Result{Action: action, Counter: next}
}

// Debouncer tracks one counter per symptom and feeds confirmed transitions
// into the fault manager. It prevents rapid toggling on noisy sensor data.
type Debouncer struct {
	// limit is the confirmation threshold shared by all tracked symptoms.
	limit int
	// counters maps symptom id to its current debounce counter.
	counters map[string]int
}

// NewDebouncer creates a debouncer with the provided confirmation limit.
// Non-positive limits fall back to DefaultDebounceLimit.
func NewDebouncer(limit int) *Debouncer {
	if limit <= 0 {
		limit = DefaultDebounceLimit
	}

	return &Debouncer{
		limit:    limit,
		counters: make(map[string]int),
	}
}

// Process runs one debounce step for the symptom based on the evaluated
// condition. Confirmed transitions are pushed into the sink. The returned
// flag reports whether the mechanism should be re-evaluated on the next tick
// regardless of sensor changes, which keeps an in-flight debounce moving.
func (d *Debouncer) Process(
	ctx context.Context,
	sink Sink,
	symptomID string,
	condition bool,
	info safety.AdditionalInfo,
) (bool, error) {
	current, err := sink.CheckSymptom(symptomID)
	if err != nil {
		return false, fmt.Errorf("check symptom: %w", err)
	}

	// Nothing to do while the latched state already agrees with the condition.
	actionable := (condition && current == safety.Cleared) ||
		(!condition && current == safety.Set) ||
		current == safety.NotTested
	if !actionable {
		return false, nil
	}

	counter, tracked := d.counters[symptomID]
	if !tracked {
		counter = initialCounter
	}

	result := Debounce(counter, condition, d.limit)
	d.counters[symptomID] = result.Counter

	switch result.Action {
	case RaiseSymptom:
		if err := sink.SetSymptom(ctx, symptomID, info); err != nil {
			return false, fmt.Errorf("set symptom: %w", err)
		}

		logger.DebugKV(ctx, "Symptom raised after debounce", "symptom_id", symptomID, "info", info)

		return false, nil
	case HealSymptom:
		if err := sink.ClearSymptom(ctx, symptomID, info); err != nil {
			return false, fmt.Errorf("clear symptom: %w", err)
		}

		logger.DebugKV(ctx, "Symptom healed after debounce", "symptom_id", symptomID, "info", info)

		return false, nil
	case NoAction:
	}

	return true, nil
}
