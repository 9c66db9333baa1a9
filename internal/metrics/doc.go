// Package metrics registers and exposes the Prometheus instrumentation of the
// monitor: symptom and fault transition counters, configuration-defect
// counters, and the active-fault gauge.
//
// Init must be called once at startup; the helper functions are no-ops until
// then, which keeps unit tests free of registry side effects.
package metrics
