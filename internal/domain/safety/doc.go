// Package safety contains the core domain types of the fault-management engine.
//
// It defines the tri-state observation model (NotTested/Set/Cleared), the
// mechanism lifecycle (Disabled/Enabled), Symptom and Fault entities with
// Clone helpers, and the recovery-action binding shared between the fault
// manager and the safety components.
package safety
