package component

// Transform converts a raw configured value (in the user's natural unit, such
// as degrees or hours) into the calibrated unit a mechanism consumes.
// Transforms must be pure and deterministic; they run exactly once, at
// symptom construction.
type Transform func(raw float64) float64

// Identity returns the raw value unchanged. Used where the configuration
// already carries calibrated values.
func Identity(raw float64) float64 {
	return raw
}

// HoursToMinutes converts a span configured in hours into minutes.
func HoursToMinutes(raw float64) float64 {
	return raw * 60
}

// Scale returns a transform multiplying the raw value by the given factor.
func Scale(factor float64) Transform {
	return func(raw float64) float64 {
		return raw * factor
	}
}
