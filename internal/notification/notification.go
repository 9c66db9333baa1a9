// Package notification drives the alerting entities from fault transitions.
// The warning light follows any active fault of level 2 or better, the siren
// only the most severe level. Less severe faults are log-only.
package notification

import (
	"context"
	"fmt"
	"sync"

	"home-safety-monitor/internal/component"
	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/faultman"
)

const (
	// sirenMaxLevel is the least severe level that still sounds the siren.
	sirenMaxLevel = 1
	// lightMaxLevel is the least severe level that still lights the warning
	// light.
	lightMaxLevel = 2
)

// Manager tracks active faults and keeps the alerting entities in sync with
// the most severe one. Safe for concurrent use.
type Manager struct {
	writer      component.Writer
	lightEntity string
	sirenEntity string

	mu      sync.Mutex
	active  map[string]int
	lightOn bool
	sirenOn bool
}

// New constructs a manager commanding the given entities. Either entity may
// be empty, which disables that channel.
func New(writer component.Writer, lightEntity, sirenEntity string) *Manager {
	return &Manager{
		writer:      writer,
		lightEntity: lightEntity,
		sirenEntity: sirenEntity,
		active:      make(map[string]int),
	}
}

// Notify folds one fault transition into the active set and reconciles the
// alerting entities.
func (m *Manager) Notify(ctx context.Context, event faultman.TransitionEvent) error {
	m.mu.Lock()

	if event.State == safety.Set {
		m.active[event.FaultID] = event.Level
	} else {
		delete(m.active, event.FaultID)
	}

	wantLight := m.anyAtOrAbove(lightMaxLevel)
	wantSiren := m.anyAtOrAbove(sirenMaxLevel)

	m.mu.Unlock()

	if err := m.reconcile(ctx, m.lightEntity, wantLight, &m.lightOn, event); err != nil {
		return err
	}

	return m.reconcile(ctx, m.sirenEntity, wantSiren, &m.sirenOn, event)
}

// anyAtOrAbove reports whether any active fault is at least as severe as the
// given level. Must be called with the mutex held.
func (m *Manager) anyAtOrAbove(level int) bool {
	for _, active := range m.active {
		if active <= level {
			return true
		}
	}

	return false
}

func (m *Manager) reconcile(
	ctx context.Context,
	entity string,
	want bool,
	current *bool,
	event faultman.TransitionEvent,
) error {
	if entity == "" {
		return nil
	}

	m.mu.Lock()
	changed := *current != want
	if changed {
		*current = want
	}
	m.mu.Unlock()

	if !changed {
		return nil
	}

	command := "off"
	if want {
		command = "on"
	}

	attributes := map[string]string{
		"fault_id":   event.FaultID,
		"fault_name": event.FaultName,
	}
	for key, value := range event.Info {
		attributes[key] = value
	}

	if err := m.writer.WriteState(ctx, entity, command, attributes); err != nil {
		return fmt.Errorf("command %s: %w", entity, err)
	}

	return nil
}

// ActiveCount returns the number of currently set faults the manager knows
// about.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.active)
}
