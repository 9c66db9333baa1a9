// Package monitor runs the safety-monitor process: it wires configuration,
// the host runtime, the safety components, the fault manager, persistence,
// notification and recovery together, serves the monitoring HTTP API and
// drives the periodic mechanism evaluation loop.
package monitor
