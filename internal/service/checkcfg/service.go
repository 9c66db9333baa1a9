// Package checkcfg implements the offline configuration check: it builds the
// full symptom and fault registry from a configuration file without touching
// any host runtime and reports mechanisms that resolve to zero or several
// faults.
package checkcfg

import (
	"context"
	"errors"
	"fmt"

	"home-safety-monitor/internal/config"
	"home-safety-monitor/internal/homeassistant"
	"home-safety-monitor/internal/logger"
	"home-safety-monitor/internal/service/common"
)

// Options controls the configuration check.
type Options struct {
	// ConfigPath specifies the path to the configuration YAML file.
	ConfigPath string
}

// ErrDefectsFound indicates the configuration has unresolved mechanisms.
var ErrDefectsFound = errors.New("configuration defects found")

// Run loads the configuration, constructs the registry and fails when any
// mechanism does not resolve to exactly one fault.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safety-checkcfg")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	report, err := Check(ctx, cfg)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Configuration checked",
		"faults", report.Faults, "symptoms", report.Symptoms)

	if len(report.Unresolved) > 0 {
		for _, mechanism := range report.Unresolved {
			logger.ErrorKV(ctx, "Mechanism does not resolve to exactly one fault",
				"sm_name", mechanism)
		}

		return fmt.Errorf("%w: %d unresolved mechanisms", ErrDefectsFound, len(report.Unresolved))
	}

	logger.Info(ctx, "Configuration is sound")

	return nil
}

// Report summarizes one configuration check.
type Report struct {
	// Faults is the number of catalog entries.
	Faults int
	// Symptoms is the number of constructed symptoms.
	Symptoms int
	// Unresolved lists the mechanism names without exactly one owning fault.
	Unresolved []string
}

// Check builds the registry from an already validated configuration and
// collects the defect report.
func Check(ctx context.Context, cfg *config.Config) (*Report, error) {
	components, err := common.BuildComponents(cfg, homeassistant.Null{})
	if err != nil {
		return nil, fmt.Errorf("build components: %w", err)
	}

	manager, err := common.NewManager(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("initialise fault manager: %w", err)
	}

	return &Report{
		Faults:     len(manager.Faults()),
		Symptoms:   len(manager.Symptoms()),
		Unresolved: manager.UnresolvedMechanisms(),
	}, nil
}
