// Package faultman implements the fault-management engine: the symptom and
// fault registries, the mechanism-to-fault index with its validation, the
// set/clear/check API, and the aggregation rule deriving fault state from the
// latched symptoms.
//
// Configuration defects (a mechanism identifier referenced by zero or several
// faults) are logged and skip fault aggregation for the affected symptoms but
// never abort the manager; usage errors (unknown ids, disabled symptoms) are
// returned to the caller.
package faultman
