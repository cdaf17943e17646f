package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OracleEngine/pkg/logger"
)

// Component is a long-running part of the process. Start must not block.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ComponentFuncs adapts plain functions into a Component.
type ComponentFuncs struct {
	ID      string
	StartFn func(ctx context.Context) error
	StopFn  func(ctx context.Context) error
}

func (c ComponentFuncs) Name() string { return c.ID }

func (c ComponentFuncs) Start(ctx context.Context) error {
	if c.StartFn == nil {
		return nil
	}
	return c.StartFn(ctx)
}

func (c ComponentFuncs) Stop(ctx context.Context) error {
	if c.StopFn == nil {
		return nil
	}
	return c.StopFn(ctx)
}

// App starts components in order, waits for SIGINT/SIGTERM and stops them in
// reverse order.
type App struct {
	log             *logger.Logger
	components      []Component
	shutdownTimeout time.Duration
	closers         []func() error
}

func New(lgr *logger.Logger, shutdownTimeout time.Duration, components ...Component) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{log: lgr, components: components, shutdownTimeout: shutdownTimeout}
}

// OnClose registers resources (pools, producers) closed after all components stop.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run blocks until a termination signal arrives.
func (a *App) Run() error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(sigCtx)
}

// RunContext blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := 0
	for _, c := range a.components {
		if err := c.Start(runCtx); err != nil {
			a.log.Error("component start failed", logger.String("component", c.Name()), logger.Error(err))
			a.stop(started)
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		a.log.Info("component started", logger.String("component", c.Name()))
		started++
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	a.stop(started)
	return nil
}

func (a *App) stop(n int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	for i := n - 1; i >= 0; i-- {
		c := a.components[i]
		if err := c.Stop(ctx); err != nil {
			a.log.Warn("component stop error", logger.String("component", c.Name()), logger.Error(err))
		}
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close error", logger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
