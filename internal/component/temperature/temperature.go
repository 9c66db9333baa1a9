package temperature

import (
	"context"
	"errors"
	"fmt"

	"home-safety-monitor/internal/component"
	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/logger"
)

const (
	// Name identifies this component type in symptom bindings and logs.
	Name = "TemperatureComponent"

	// MechanismThreshold is the identifier of the measured-temperature
	// mechanism: risky while the room temperature is below the threshold.
	MechanismThreshold = "sm_tc_1"
	// MechanismForecast is the identifier of the forecast mechanism: risky
	// while the temperature extrapolated over the forecast span is below the
	// threshold.
	MechanismForecast = "sm_tc_2"

	// RecoveryManipulateWindow names the recovery kind bound to both
	// mechanisms: command the room's window actuator depending on the outside
	// temperature.
	RecoveryManipulateWindow = "ManipulateWindowInRoom"

	// forecastSuffix distinguishes the forecast symptom id from the
	// measured-temperature one.
	forecastSuffix = "ForeCast"
)

var (
	// errRoomRequired is returned when a room entry has no room name.
	errRoomRequired = errors.New("room name must be provided")
	// errSensorRequired is returned when a room entry has no temperature sensor.
	errSensorRequired = errors.New("temperature sensor must be provided")
	// errUnknownMechanism is returned when a foreign symptom reaches Evaluate.
	errUnknownMechanism = errors.New("unknown mechanism")
	// errForeignParameters is returned when a symptom carries parameters this
	// component did not construct.
	errForeignParameters = errors.New("foreign symptom parameters")
)

// RoomConfig is the raw per-room configuration in the user's natural units
// (degrees for thresholds, hours for the forecast span).
type RoomConfig struct {
	// Room is the location name, e.g. "Office". It becomes part of symptom ids.
	Room string
	// Sensor is the temperature sensor entity id.
	Sensor string
	// RateSensor is the temperature-rate entity id (degrees per minute).
	// The forecast mechanism is only built when it is set.
	RateSensor string
	// WindowActuator is the optional window actuator commanded by recovery.
	WindowActuator string
	// LowThreshold is the risky-temperature threshold in degrees.
	LowThreshold float64
	// ForecastSpan is the forecast horizon in hours.
	ForecastSpan float64
}

// Params is the calibrated parameter set stored on each symptom, produced
// once at construction by the calibration transforms.
type Params struct {
	// Room is the location the symptom observes.
	Room string
	// Sensor is the temperature sensor entity id.
	Sensor string
	// RateSensor is the temperature-rate entity id, empty for the
	// measured-temperature mechanism.
	RateSensor string
	// WindowActuator is the optional actuator commanded by recovery.
	WindowActuator string
	// LowThreshold is the calibrated threshold the evaluation compares against.
	LowThreshold float64
	// ForecastSpanMinutes is the calibrated forecast horizon in minutes.
	ForecastSpanMinutes float64
}

// Calibration groups the transforms applied to raw configuration values.
// The exact threshold scale used by historical configurations is not fully
// determined, so the transform is injectable; the default leaves thresholds
// untouched and converts the forecast span from hours to minutes.
type Calibration struct {
	// Threshold calibrates the risky-temperature threshold.
	Threshold component.Transform
	// ForecastSpan calibrates the forecast horizon into minutes.
	ForecastSpan component.Transform
}

// DefaultCalibration returns the calibration documented above.
func DefaultCalibration() Calibration {
	return Calibration{
		Threshold:    component.Identity,
		ForecastSpan: component.HoursToMinutes,
	}
}

// Component owns the temperature safety mechanisms of the configured rooms.
// One instance serves every room; its symptoms share it as their module.
type Component struct {
	// reader supplies sensor values from the host runtime.
	reader component.Reader
	// writer commands actuators during recovery.
	writer component.Writer
	// outsideSensor is the outside temperature entity consulted by recovery.
	outsideSensor string
	// symptoms is the constructed symptom set, two per fully-configured room.
	symptoms []*safety.Symptom
}

// New validates the room configuration, applies the calibration transforms
// and constructs the component with its symptom set.
func New(
	reader component.Reader,
	writer component.Writer,
	outsideSensor string,
	calibration Calibration,
	rooms []RoomConfig,
) (*Component, error) {
	if calibration.Threshold == nil {
		calibration.Threshold = component.Identity
	}

	if calibration.ForecastSpan == nil {
		calibration.ForecastSpan = component.HoursToMinutes
	}

	c := &Component{
		reader:        reader,
		writer:        writer,
		outsideSensor: outsideSensor,
	}

	seen := make(map[string]struct{}, len(rooms))

	for _, room := range rooms {
		if room.Room == "" {
			return nil, errRoomRequired
		}

		if room.Sensor == "" {
			return nil, fmt.Errorf("room %q: %w", room.Room, errSensorRequired)
		}

		if _, duplicate := seen[room.Room]; duplicate {
			return nil, fmt.Errorf("room %q: duplicate entry", room.Room)
		}

		seen[room.Room] = struct{}{}

		c.symptoms = append(c.symptoms, c.thresholdSymptom(room, calibration))

		if room.RateSensor != "" {
			c.symptoms = append(c.symptoms, c.forecastSymptom(room, calibration))
		}
	}

	return c, nil
}

// ComponentName identifies the component type.
func (c *Component) ComponentName() string {
	return Name
}

// Symptoms returns the constructed symptom set. The symptoms are shared with
// the fault manager, not copied.
func (c *Component) Symptoms() []*safety.Symptom {
	return c.symptoms
}

func (c *Component) thresholdSymptom(room RoomConfig, calibration Calibration) *safety.Symptom {
	id := "RiskyTemperature" + room.Room

	return &safety.Symptom{
		ID:     id,
		Name:   id,
		SMName: MechanismThreshold,
		Module: c,
		Parameters: Params{
			Room:           room.Room,
			Sensor:         room.Sensor,
			WindowActuator: room.WindowActuator,
			LowThreshold:   calibration.Threshold(room.LowThreshold),
		},
		RecoverAction: c.recoveryAction(room),
	}
}

func (c *Component) forecastSymptom(room RoomConfig, calibration Calibration) *safety.Symptom {
	id := "RiskyTemperature" + room.Room + forecastSuffix

	return &safety.Symptom{
		ID:     id,
		Name:   id,
		SMName: MechanismForecast,
		Module: c,
		Parameters: Params{
			Room:                room.Room,
			Sensor:              room.Sensor,
			RateSensor:          room.RateSensor,
			WindowActuator:      room.WindowActuator,
			LowThreshold:        calibration.Threshold(room.LowThreshold),
			ForecastSpanMinutes: calibration.ForecastSpan(room.ForecastSpan),
		},
		RecoverAction: c.recoveryAction(room),
	}
}

func (c *Component) recoveryAction(room RoomConfig) safety.RecoveryAction {
	return safety.RecoveryAction{
		Type: RecoveryManipulateWindow,
		Params: map[string]string{
			"location": room.Room,
			"actuator": room.WindowActuator,
		},
		Run: c.RecoverRiskyTemperature,
	}
}

// Evaluate decides whether the symptom's temperature condition holds right now.
func (c *Component) Evaluate(ctx context.Context, symptom *safety.Symptom) (component.Observation, error) {
	params, ok := symptom.Parameters.(Params)
	if !ok {
		return component.Observation{}, fmt.Errorf("%w: symptom %q", errForeignParameters, symptom.ID)
	}

	temperature, err := c.reader.ReadFloat(ctx, params.Sensor)
	if err != nil {
		return component.Observation{}, fmt.Errorf("read %s: %w", params.Sensor, err)
	}

	var condition bool

	switch symptom.SMName {
	case MechanismThreshold:
		condition = temperature < params.LowThreshold
	case MechanismForecast:
		rate, rateErr := c.reader.ReadFloat(ctx, params.RateSensor)
		if rateErr != nil {
			return component.Observation{}, fmt.Errorf("read %s: %w", params.RateSensor, rateErr)
		}

		// Rate is degrees per minute, span is minutes.
		forecast := temperature + rate*params.ForecastSpanMinutes
		condition = forecast < params.LowThreshold
	default:
		return component.Observation{}, fmt.Errorf("%w: %q", errUnknownMechanism, symptom.SMName)
	}

	return component.Observation{
		Condition: condition,
		Info:      safety.AdditionalInfo{"location": params.Room},
	}, nil
}

// RecoverRiskyTemperature commands the room's window actuator: closed while
// the outside temperature is below the room temperature, open otherwise.
// Rooms without an actuator or installations without an outside sensor only
// get a log line.
func (c *Component) RecoverRiskyTemperature(
	ctx context.Context,
	symptom *safety.Symptom,
	info safety.AdditionalInfo,
) error {
	params, ok := symptom.Parameters.(Params)
	if !ok {
		return fmt.Errorf("%w: symptom %q", errForeignParameters, symptom.ID)
	}

	if c.outsideSensor == "" || params.WindowActuator == "" {
		logger.DebugKV(ctx, "Recovery has nothing to actuate",
			"symptom_id", symptom.ID, "room", params.Room)

		return nil
	}

	roomTemperature, err := c.reader.ReadFloat(ctx, params.Sensor)
	if err != nil {
		return fmt.Errorf("read %s: %w", params.Sensor, err)
	}

	outsideTemperature, err := c.reader.ReadFloat(ctx, c.outsideSensor)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.outsideSensor, err)
	}

	command := "on"
	if outsideTemperature < roomTemperature {
		command = "off"
	}

	attributes := map[string]string{"location": params.Room}
	for key, value := range info {
		attributes[key] = value
	}

	if err := c.writer.WriteState(ctx, params.WindowActuator, command, attributes); err != nil {
		return fmt.Errorf("command actuator %s: %w", params.WindowActuator, err)
	}

	logger.InfoKV(ctx, "Window actuator commanded",
		"room", params.Room, "actuator", params.WindowActuator, "command", command)

	return nil
}
