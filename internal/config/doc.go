// Package config loads and validates the safety-monitor YAML configuration:
// the fault catalog, the monitored rooms, the host-runtime connection and the
// runtime knobs. Decoding is strict; unknown keys are configuration errors.
package config
