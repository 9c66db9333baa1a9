package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihttp "home-safety-monitor/internal/api/http"
	"home-safety-monitor/internal/component"
	"home-safety-monitor/internal/config"
	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/faultman"
	"home-safety-monitor/internal/homeassistant"
	"home-safety-monitor/internal/logger"
	"home-safety-monitor/internal/metrics"
	"home-safety-monitor/internal/notification"
	"home-safety-monitor/internal/recovery"
	repository "home-safety-monitor/internal/repository/state"
	"home-safety-monitor/internal/service/common"
)

// Options controls the safety-monitor process.
type Options struct {
	// ConfigPath specifies the path to the configuration YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP API.
	ListenAddress string
	// StateFile provides an optional override for the latched-state JSON path.
	StateFile string
}

// shutdownTimeout bounds how long the HTTP server may take to drain.
const shutdownTimeout = 5 * time.Second

// Run wires the engine together and blocks until the context is canceled:
// configuration, host runtime, components, fault manager, persistence,
// notification, recovery, the HTTP API and the evaluation loop.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safety-monitor")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	listenAddress := cfg.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	stateFile := cfg.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	metrics.Init()

	runtime := newRuntime(ctx, cfg)

	components, err := common.BuildComponents(cfg, runtime)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}

	manager, err := common.NewManager(ctx, cfg, components)
	if err != nil {
		return fmt.Errorf("initialise fault manager: %w", err)
	}

	repo := repository.NewFileRepository(stateFile)
	restoreState(ctx, manager, repo)

	notifier := notification.New(runtime, cfg.Notification.LightEntity, cfg.Notification.SirenEntity)
	recoverer := recovery.New()

	manager.SetTransitionFunc(func(ctx context.Context, event faultman.TransitionEvent) {
		if err := notifier.Notify(ctx, event); err != nil {
			logger.Errorf(ctx, "Failed to notify fault transition: %v", err)
		}
	})

	manager.EnableAll(ctx)

	server := &http.Server{
		Addr:              listenAddress,
		Handler:           apihttp.NewRouter(manager),
		ReadHeaderTimeout: shutdownTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		logger.InfoKV(ctx, "Safety monitor listening",
			"listen_address", listenAddress, "state_file", stateFile)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}

		close(serveErr)
	}()

	loop := &evaluationLoop{
		manager:    manager,
		components: components,
		debouncer:  component.NewDebouncer(cfg.DebounceLimit),
		recoverer:  recoverer,
		repo:       repo,
	}

	ticker := time.NewTicker(cfg.EvaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return shutdown(ctx, server, manager, repo, serveErr)
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			// Closed without error: disable this case.
			serveErr = nil
		case <-ticker.C:
			loop.tick(ctx)
		}
	}
}

// newRuntime picks the host runtime: a Home Assistant client when configured,
// the null adapter otherwise.
func newRuntime(ctx context.Context, cfg *config.Config) common.RuntimeAdapter {
	if cfg.HomeAssistant == nil {
		logger.Info(ctx, "No host runtime configured, sensors stay untested")

		return homeassistant.Null{}
	}

	return homeassistant.NewClient(
		cfg.HomeAssistant.BaseURL,
		cfg.HomeAssistant.Token,
		cfg.HomeAssistant.Timeout,
	)
}

// restoreState loads the persisted snapshot, if any, into the manager.
func restoreState(ctx context.Context, manager *faultman.Manager, repo repository.Repository) {
	snapshot, err := repo.Load(ctx)

	switch {
	case err == nil:
		manager.Restore(ctx, snapshot)
		logger.InfoKV(ctx, "Restored latched state", "timestamp", snapshot.Timestamp)
	case errors.Is(err, repository.ErrNotFound):
		logger.Debug(ctx, "No persisted state, starting fresh")
	default:
		logger.Errorf(ctx, "Failed to load persisted state: %v", err)
	}
}

// evaluationLoop drives the components through their symptoms once per tick.
type evaluationLoop struct {
	manager    *faultman.Manager
	components []component.Module
	debouncer  *component.Debouncer
	recoverer  *recovery.Manager
	repo       repository.Repository

	// lastSaved is the previously persisted snapshot, used to skip writes
	// when nothing changed.
	lastSaved *safety.Snapshot
}

func (l *evaluationLoop) tick(ctx context.Context) {
	for _, comp := range l.components {
		for _, symptom := range comp.Symptoms() {
			l.evaluate(ctx, comp, symptom)
		}
	}

	l.persist(ctx)
}

func (l *evaluationLoop) evaluate(ctx context.Context, comp component.Module, symptom *safety.Symptom) {
	observation, err := comp.Evaluate(ctx, symptom)
	if err != nil {
		logger.WarnKV(ctx, "Evaluation failed, symptom stays as-is",
			"symptom_id", symptom.ID, "error", err)

		return
	}

	before, err := l.manager.CheckSymptom(symptom.ID)
	if err != nil {
		logger.Errorf(ctx, "Failed to check symptom %q: %v", symptom.ID, err)

		return
	}

	if _, err = l.debouncer.Process(ctx, l.manager, symptom.ID,
		observation.Condition, observation.Info); err != nil {
		logger.Errorf(ctx, "Failed to process symptom %q: %v", symptom.ID, err)

		return
	}

	after, err := l.manager.CheckSymptom(symptom.ID)
	if err != nil {
		logger.Errorf(ctx, "Failed to check symptom %q: %v", symptom.ID, err)

		return
	}

	// Recovery runs once, on the latching transition.
	if before != safety.Set && after == safety.Set {
		if err = l.recoverer.Handle(ctx, symptom, observation.Info); err != nil {
			logger.Errorf(ctx, "Recovery failed: %v", err)
		}
	}
}

// persist writes the current snapshot when the latched states changed since
// the last write.
func (l *evaluationLoop) persist(ctx context.Context) {
	snapshot := l.manager.Snapshot()
	if snapshotsEqual(l.lastSaved, snapshot) {
		return
	}

	if err := l.repo.Save(ctx, snapshot); err != nil {
		logger.Errorf(ctx, "Failed to persist latched state: %v", err)

		return
	}

	l.lastSaved = snapshot
}

// snapshotsEqual compares the latched states, ignoring the capture timestamp.
func snapshotsEqual(a, b *safety.Snapshot) bool {
	if a == nil || b == nil {
		return a == b
	}

	return statesEqual(a.Symptoms, b.Symptoms) && statesEqual(a.Faults, b.Faults)
}

func statesEqual(a, b map[string]safety.TriState) bool {
	if len(a) != len(b) {
		return false
	}

	for id, state := range a {
		if other, ok := b[id]; !ok || other != state {
			return false
		}
	}

	return true
}

// shutdown drains the HTTP server and persists the final snapshot.
func shutdown(
	ctx context.Context,
	server *http.Server,
	manager *faultman.Manager,
	repo repository.Repository,
	serveErr <-chan error,
) error {
	logger.Info(ctx, "Shutting down safety monitor")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Failed to shut down HTTP server: %v", err)
	}

	if serveErr != nil {
		if err, ok := <-serveErr; ok && err != nil {
			return fmt.Errorf("serve HTTP: %w", err)
		}
	}

	if err := repo.Save(shutdownCtx, manager.Snapshot()); err != nil {
		logger.Errorf(ctx, "Failed to persist final state: %v", err)
	}

	logger.Info(ctx, "Safety monitor stopped")

	return nil
}
