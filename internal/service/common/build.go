// Package common holds construction helpers shared by the safety-monitor and
// safety-checkcfg services: turning validated configuration into components,
// the fault catalog and the fault manager.
package common

import (
	"context"
	"fmt"

	"home-safety-monitor/internal/component"
	"home-safety-monitor/internal/component/temperature"
	"home-safety-monitor/internal/config"
	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/faultman"
)

// RuntimeAdapter combines the sensor and actuator sides of the host runtime.
type RuntimeAdapter interface {
	component.Reader
	component.Writer
}

// BuildComponents constructs every configured safety component against the
// given host runtime.
func BuildComponents(cfg *config.Config, runtime RuntimeAdapter) ([]component.Module, error) {
	var components []component.Module

	if len(cfg.TemperatureRooms) > 0 {
		rooms := make([]temperature.RoomConfig, 0, len(cfg.TemperatureRooms))
		for _, room := range cfg.TemperatureRooms {
			rooms = append(rooms, temperature.RoomConfig{
				Room:           room.Room,
				Sensor:         room.TemperatureSensor,
				RateSensor:     room.TemperatureRateSensor,
				WindowActuator: room.WindowActuator,
				LowThreshold:   room.LowTemperatureThreshold,
				ForecastSpan:   room.ForecastSpanHours,
			})
		}

		comp, err := temperature.New(runtime, runtime,
			cfg.OutsideTemperatureSensor, temperature.DefaultCalibration(), rooms)
		if err != nil {
			return nil, fmt.Errorf("temperature component: %w", err)
		}

		components = append(components, comp)
	}

	return components, nil
}

// BuildFaults turns the configured catalog into domain faults in stable order.
func BuildFaults(cfg *config.Config) []*safety.Fault {
	faults := make([]*safety.Fault, 0, len(cfg.Faults))
	for _, id := range cfg.FaultIDs() {
		entry := cfg.Faults[id]
		faults = append(faults, &safety.Fault{
			ID:                id,
			Name:              entry.Name,
			Level:             entry.Level,
			RelatedMechanisms: entry.RelatedMechanisms,
		})
	}

	return faults
}

// NewManager collects every component's symptoms and constructs the fault
// manager over the configured catalog.
func NewManager(
	ctx context.Context,
	cfg *config.Config,
	components []component.Module,
) (*faultman.Manager, error) {
	var symptoms []*safety.Symptom
	for _, comp := range components {
		symptoms = append(symptoms, comp.Symptoms()...)
	}

	return faultman.New(ctx, BuildFaults(cfg), symptoms)
}
