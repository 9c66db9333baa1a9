// Package component provides the safety-component framework: the host-runtime
// boundary interfaces (Reader, Writer), the evaluator contract driven by the
// evaluation loop, debouncing of noisy conditions, and the calibration
// transforms applied to raw configuration values at symptom construction.
//
// Concrete components (see the temperature subpackage) build symptoms from
// per-room configuration and implement the evaluation logic for their
// physical quantity.
package component
