// Package state persists the latched symptom and fault states across process
// restarts as a JSON snapshot file.
package state
