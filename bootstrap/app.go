package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/asrkit/logger"
	"github.com/kbukum/asrkit/observability"
)

// App owns a binary's lifecycle. Components start in registration order,
// the hooks run, the service or task runs until done or signalled, and
// everything stops in reverse order. C is the config type.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.Register(bootstrap.NewComponent("http", srv.Start, srv.Stop))
//	err = app.Run(ctx)
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	components      *registry
	checkers        []observability.HealthChecker
	gracefulTimeout time.Duration

	onStart, onReady, onStop []Hook
}

// NewApp defaults and validates cfg, then builds the logger from its
// logging section unless WithLogger is given.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()

	s := settings{gracefulTimeout: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		logger.Init(svc.Logging, svc.Name)
		s.log = logger.GetGlobalLogger()
	}

	return &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Logger:          s.log,
		components:      newRegistry(s.log.WithComponent("bootstrap")),
		gracefulTimeout: s.gracefulTimeout,
	}, nil
}

// Register adds components; register dependencies before their users.
func (a *App[C]) Register(components ...Component) error {
	for _, c := range components {
		if err := a.components.register(c); err != nil {
			return err
		}
	}
	return nil
}

// AddHealthCheck adds dependency probes.
func (a *App[C]) AddHealthCheck(checkers ...observability.HealthChecker) {
	a.checkers = append(a.checkers, checkers...)
}

// HealthCheckers returns the probes for the health endpoints.
func (a *App[C]) HealthCheckers() []observability.HealthChecker {
	return a.checkers
}

// Health runs every probe.
func (a *App[C]) Health(ctx context.Context) *observability.ServiceHealth {
	return observability.CheckAll(ctx, a.Name, a.Version, a.checkers...)
}

// ReadyCheck fails only when a required dependency is down.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	h := a.Health(ctx)
	if h.Status != observability.HealthStatusDown {
		return nil
	}
	var down []string
	for _, c := range h.Components {
		if c.Status != observability.HealthStatusDown {
			continue
		}
		if c.Message == "" {
			down = append(down, c.Name)
		} else {
			down = append(down, c.Name+"("+c.Message+")")
		}
	}
	return fmt.Errorf("unhealthy components: [%s]", strings.Join(down, " "))
}

// Run serves until SIGINT, SIGTERM or ctx cancellation, then stops.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("application ready, waiting for shutdown signal")
		<-ctx.Done()
		a.Logger.Info("shutting down", logger.Fields("cause", context.Cause(ctx).Error()))
		return nil
	})
}

// RunTask runs a finite task between start and stop. A signal cancels the
// task's context. The task's error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()
		if stopErr := a.components.stopAll(stopCtx); stopErr != nil {
			a.Logger.Error("cleanup after failed start", logger.Fields(logger.FieldError, stopErr.Error()))
		}
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	cancel()

	if stopErr := a.stop(); taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Debug("starting application", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		"components", a.components.names(),
	))

	if err := a.components.startAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Logger.Debug("application started", logger.Fields(logger.FieldDuration, time.Since(began).Milliseconds()))
	return nil
}

// stop runs the OnStop hooks, then stops components, within the graceful
// timeout. The first failure is returned.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hookErr := runHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, hookErr.Error()))
	}
	stopErr := a.components.stopAll(ctx)
	if stopErr != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, stopErr.Error()))
	}

	a.Logger.Debug("application shutdown complete")
	if hookErr != nil {
		return hookErr
	}
	return stopErr
}
