package faultman

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/logger"
	"home-safety-monitor/internal/metrics"
)

// TransitionEvent describes a fault state change produced by the manager.
// It is handed to the registered TransitionFunc so that external collaborators
// (notification, recovery, persistence) can react without the core knowing them.
type TransitionEvent struct {
	// FaultID identifies the fault that changed state.
	FaultID string
	// FaultName is the fault's display name.
	FaultName string
	// Level is the fault's notification severity.
	Level int
	// State is the new derived state of the fault.
	State safety.TriState
	// SymptomID is the symptom whose set/clear triggered the recomputation.
	SymptomID string
	// Info is the opaque diagnostic metadata passed to the set/clear call.
	Info safety.AdditionalInfo
}

// TransitionFunc is invoked synchronously, outside the manager's lock, after a
// fault changes state.
type TransitionFunc func(ctx context.Context, event TransitionEvent)

var (
	// ErrUnknownSymptom is returned when a symptom id is not registered.
	ErrUnknownSymptom = errors.New("unknown symptom id")
	// ErrUnknownFault is returned when a fault id is not registered.
	ErrUnknownFault = errors.New("unknown fault id")
	// ErrSymptomDisabled is returned when a set/clear call targets a symptom
	// whose mechanism is not enabled. Observations must not be dropped
	// silently, so this is a usage error rather than a no-op.
	ErrSymptomDisabled = errors.New("symptom is disabled")
)

// Manager owns the symptom and fault registries and serves the set/clear/check
// API. All entities are registered once at construction and never removed.
type Manager struct {
	// symptoms maps symptom id to its registered entity.
	symptoms map[string]*safety.Symptom
	// faults maps fault id to its registered entity.
	faults map[string]*safety.Fault
	// mechanismFaults maps each mechanism identifier appearing across the
	// symptoms to every fault referencing it. Exactly one entry is the valid
	// configuration; zero or several is a defect reported lazily on first use.
	mechanismFaults map[string][]string
	// faultSymptoms is the reverse index (fault id to contributing symptom
	// ids), built only for mechanisms that resolve to exactly one fault.
	faultSymptoms map[string][]string
	// onTransition is the registered fault-transition callback.
	onTransition TransitionFunc
	// mu protects the registries so the HTTP query surface can read while the
	// evaluation loop writes.
	mu sync.RWMutex
}

// New registers the configured faults and the symptoms produced by the safety
// components, then builds the mechanism-to-fault index. Orphan and ambiguous
// mechanism mappings are logged here but are not fatal: the manager keeps
// operating for correctly-mapped symptoms, and the defect is reported again on
// the first set/clear call that hits it.
func New(ctx context.Context, faults []*safety.Fault, symptoms []*safety.Symptom) (*Manager, error) {
	m := &Manager{
		symptoms:        make(map[string]*safety.Symptom, len(symptoms)),
		faults:          make(map[string]*safety.Fault, len(faults)),
		mechanismFaults: make(map[string][]string),
		faultSymptoms:   make(map[string][]string),
	}

	for _, fault := range faults {
		if _, exists := m.faults[fault.ID]; exists {
			return nil, fmt.Errorf("register fault %q: duplicate id", fault.ID)
		}

		m.faults[fault.ID] = fault
	}

	for _, symptom := range symptoms {
		if _, exists := m.symptoms[symptom.ID]; exists {
			return nil, fmt.Errorf("register symptom %q: duplicate id", symptom.ID)
		}

		m.symptoms[symptom.ID] = symptom
	}

	m.buildIndex(ctx)

	return m, nil
}

// buildIndex resolves every distinct mechanism identifier against the fault
// registry and logs structural defects without aborting.
func (m *Manager) buildIndex(ctx context.Context) {
	for _, symptom := range m.symptoms {
		if _, done := m.mechanismFaults[symptom.SMName]; done {
			continue
		}

		var matches []string

		for id, fault := range m.faults {
			for _, mechanism := range fault.RelatedMechanisms {
				if mechanism == symptom.SMName {
					matches = append(matches, id)

					break
				}
			}
		}

		sort.Strings(matches)
		m.mechanismFaults[symptom.SMName] = matches

		switch len(matches) {
		case 0:
			logger.Errorf(ctx, "No fault references safety mechanism %q", symptom.SMName)
		case 1:
			// Expected case; reverse index is filled below.
		default:
			logger.Errorf(ctx, "%d faults reference safety mechanism %q", len(matches), symptom.SMName)
		}
	}

	for _, symptom := range m.symptoms {
		matches := m.mechanismFaults[symptom.SMName]
		if len(matches) != 1 {
			continue
		}

		faultID := matches[0]
		m.faultSymptoms[faultID] = append(m.faultSymptoms[faultID], symptom.ID)
	}

	for _, ids := range m.faultSymptoms {
		sort.Strings(ids)
	}
}

// SetTransitionFunc registers the callback informed of fault transitions.
// Not thread-safe; call before the evaluation loop starts.
func (m *Manager) SetTransitionFunc(fn TransitionFunc) {
	m.onTransition = fn
}

// EnableAll transitions every disabled symptom to ENABLED.
func (m *Manager) EnableAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, symptom := range m.symptoms {
		if symptom.SMState == safety.Disabled {
			symptom.SMState = safety.Enabled
		}
	}

	logger.InfoKV(ctx, "Safety mechanisms enabled", "symptoms", len(m.symptoms))
}

// Enable transitions one symptom's mechanism to ENABLED.
func (m *Manager) Enable(_ context.Context, symptomID string) error {
	return m.setLifecycle(symptomID, safety.Enabled)
}

// Disable transitions one symptom's mechanism to DISABLED. A disabled symptom
// keeps its latched state but rejects set/clear calls.
func (m *Manager) Disable(_ context.Context, symptomID string) error {
	return m.setLifecycle(symptomID, safety.Disabled)
}

func (m *Manager) setLifecycle(symptomID string, state safety.SMState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	symptom, ok := m.symptoms[symptomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSymptom, symptomID)
	}

	symptom.SMState = state

	return nil
}

// SetSymptom latches the symptom to SET and recomputes the owning fault's
// state. Orphan and ambiguous mechanism mappings are logged and leave every
// fault untouched; they are not an error to the caller.
func (m *Manager) SetSymptom(ctx context.Context, symptomID string, info safety.AdditionalInfo) error {
	return m.applySymptom(ctx, symptomID, safety.Set, info)
}

// ClearSymptom latches the symptom to CLEARED and recomputes the owning
// fault's state, symmetric to SetSymptom.
func (m *Manager) ClearSymptom(ctx context.Context, symptomID string, info safety.AdditionalInfo) error {
	return m.applySymptom(ctx, symptomID, safety.Cleared, info)
}

func (m *Manager) applySymptom(
	ctx context.Context,
	symptomID string,
	latched safety.TriState,
	info safety.AdditionalInfo,
) error {
	m.mu.Lock()

	symptom, ok := m.symptoms[symptomID]
	if !ok {
		m.mu.Unlock()

		return fmt.Errorf("%w: %q", ErrUnknownSymptom, symptomID)
	}

	if symptom.SMState != safety.Enabled {
		m.mu.Unlock()

		return fmt.Errorf("%w: %q", ErrSymptomDisabled, symptomID)
	}

	symptom.Latched = latched
	metrics.SymptomTransition(latched.String())
	logger.DebugKV(ctx, "Symptom latched", "symptom_id", symptomID, "state", latched.String(), "info", info)

	event := m.recomputeFault(ctx, symptom, info)
	callback := m.onTransition

	m.mu.Unlock()

	// The callback runs outside the lock so collaborators may query the
	// manager from within it.
	if event != nil && callback != nil {
		callback(ctx, *event)
	}

	return nil
}

// recomputeFault resolves the symptom's mechanism and applies the aggregation
// rule. Must be called with the write lock held. Returns the transition event,
// or nil when no fault changed state.
func (m *Manager) recomputeFault(
	ctx context.Context,
	symptom *safety.Symptom,
	info safety.AdditionalInfo,
) *TransitionEvent {
	matches := m.mechanismFaults[symptom.SMName]

	switch len(matches) {
	case 1:
		// Expected case, handled below.
	case 0:
		logger.Errorf(ctx,
			"No faults associated with symptom_id '%s'. This may indicate a configuration error.", symptom.ID)
		metrics.OrphanDefect()

		return nil
	default:
		logger.Errorf(ctx,
			"Multiple faults found associated with symptom_id '%s', indicating a configuration error.", symptom.ID)
		metrics.AmbiguousDefect()

		return nil
	}

	fault := m.faults[matches[0]]

	next := m.aggregate(fault.ID)
	if next == fault.State {
		return nil
	}

	fault.State = next
	metrics.FaultTransition(next.String())
	metrics.SetActiveFaults(m.countActiveLocked())
	logger.InfoKV(ctx, "Fault state changed",
		"fault_id", fault.ID, "state", next.String(), "symptom_id", symptom.ID, "info", info)

	return &TransitionEvent{
		FaultID:   fault.ID,
		FaultName: fault.Name,
		Level:     fault.Level,
		State:     next,
		SymptomID: symptom.ID,
		Info:      info,
	}
}

// aggregate derives a fault's state from all contributing symptoms: SET while
// any contributor is SET, CLEARED once every contributor has been evaluated
// and none remains SET, NOT_TESTED until the first evaluation.
func (m *Manager) aggregate(faultID string) safety.TriState {
	var tested bool

	for _, symptomID := range m.faultSymptoms[faultID] {
		switch m.symptoms[symptomID].Latched {
		case safety.Set:
			return safety.Set
		case safety.Cleared:
			tested = true
		case safety.NotTested:
		}
	}

	if tested {
		return safety.Cleared
	}

	return safety.NotTested
}

func (m *Manager) countActiveLocked() int {
	var n int

	for _, fault := range m.faults {
		if fault.State == safety.Set {
			n++
		}
	}

	return n
}

// CheckSymptom returns the symptom's latched tri-state.
func (m *Manager) CheckSymptom(symptomID string) (safety.TriState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symptom, ok := m.symptoms[symptomID]
	if !ok {
		return safety.NotTested, fmt.Errorf("%w: %q", ErrUnknownSymptom, symptomID)
	}

	return symptom.Latched, nil
}

// CheckFault returns the fault's derived tri-state.
func (m *Manager) CheckFault(faultID string) (safety.TriState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fault, ok := m.faults[faultID]
	if !ok {
		return safety.NotTested, fmt.Errorf("%w: %q", ErrUnknownFault, faultID)
	}

	return fault.State, nil
}

// Symptom returns a copy of the registered symptom.
func (m *Manager) Symptom(symptomID string) (*safety.Symptom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symptom, ok := m.symptoms[symptomID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymptom, symptomID)
	}

	return symptom.Clone(), nil
}

// Fault returns a copy of the registered fault.
func (m *Manager) Fault(faultID string) (*safety.Fault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fault, ok := m.faults[faultID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFault, faultID)
	}

	return fault.Clone(), nil
}

// Symptoms returns copies of every registered symptom, ordered by id.
func (m *Manager) Symptoms() []*safety.Symptom {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*safety.Symptom, 0, len(m.symptoms))
	for _, symptom := range m.symptoms {
		result = append(result, symptom.Clone())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

// Faults returns copies of every registered fault, ordered by id.
func (m *Manager) Faults() []*safety.Fault {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*safety.Fault, 0, len(m.faults))
	for _, fault := range m.faults {
		result = append(result, fault.Clone())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

// UnresolvedMechanisms lists the mechanism identifiers that resolve to zero or
// several faults. An empty result means the symptom-to-fault mapping is sound;
// intended for startup health checks.
func (m *Manager) UnresolvedMechanisms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []string

	for mechanism, matches := range m.mechanismFaults {
		if len(matches) != 1 {
			result = append(result, mechanism)
		}
	}

	sort.Strings(result)

	return result
}

// Snapshot captures the current latched symptom states and fault states.
func (m *Manager) Snapshot() *safety.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := &safety.Snapshot{
		Timestamp: time.Now(),
		Symptoms:  make(map[string]safety.TriState, len(m.symptoms)),
		Faults:    make(map[string]safety.TriState, len(m.faults)),
	}

	for id, symptom := range m.symptoms {
		snapshot.Symptoms[id] = symptom.Latched
	}

	for id, fault := range m.faults {
		snapshot.Faults[id] = fault.State
	}

	return snapshot
}

// Restore applies a previously persisted snapshot: latched states are adopted
// for symptoms that still exist and fault states are recomputed from them.
// Unknown ids are skipped; a stale snapshot must not poison a fresh
// configuration. No transition events are emitted.
func (m *Manager) Restore(ctx context.Context, snapshot *safety.Snapshot) {
	if snapshot == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var skipped int

	for id, latched := range snapshot.Symptoms {
		symptom, ok := m.symptoms[id]
		if !ok {
			skipped++

			continue
		}

		symptom.Latched = latched
	}

	for id, fault := range m.faults {
		fault.State = m.aggregate(id)
	}

	metrics.SetActiveFaults(m.countActiveLocked())

	if skipped > 0 {
		logger.WarnKV(ctx, "Snapshot entries skipped", "skipped", skipped)
	}
}
