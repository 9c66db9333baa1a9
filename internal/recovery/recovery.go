// Package recovery dispatches the recovery actions bound to symptoms. A
// symptom latching with a bound action gets the action invoked; symptoms
// without one are only logged.
package recovery

import (
	"context"
	"fmt"
	"maps"

	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/logger"
)

// Manager runs bound recovery actions and keeps their outcome observable in
// the logs.
type Manager struct{}

// New constructs a dispatcher.
func New() *Manager {
	return &Manager{}
}

// Handle invokes the symptom's bound recovery action, merging the action's
// static parameters into the additional info the observation produced.
// A symptom without a bound action is not an error.
func (m *Manager) Handle(ctx context.Context, symptom *safety.Symptom, info safety.AdditionalInfo) error {
	if symptom == nil {
		return nil
	}

	if symptom.RecoverAction.Run == nil {
		logger.DebugKV(ctx, "No recovery bound to symptom", "symptom_id", symptom.ID)

		return nil
	}

	merged := make(safety.AdditionalInfo, len(symptom.RecoverAction.Params)+len(info))
	maps.Copy(merged, symptom.RecoverAction.Params)
	maps.Copy(merged, info)

	logger.InfoKV(ctx, "Running recovery",
		"symptom_id", symptom.ID, "recovery", symptom.RecoverAction.Type)

	if err := symptom.RecoverAction.Run(ctx, symptom, merged); err != nil {
		return fmt.Errorf("recovery %q for symptom %q: %w",
			symptom.RecoverAction.Type, symptom.ID, err)
	}

	return nil
}
