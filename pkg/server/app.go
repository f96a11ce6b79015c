package server

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"StockSignal/pkg/config"
	xhttp "StockSignal/pkg/http"
	pkgkafka "StockSignal/pkg/kafka"
	applogger "StockSignal/pkg/logger"
)

// Runner is a long-lived background component such as the live price stream.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler is the periodic refresh job.
type Scheduler interface {
	Start()
	Stop(ctx context.Context)
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	scheduler  Scheduler
	runners    []Runner
	closers    []func()
}

type Option func(*App)

// WithConsumer starts c with the given topic handlers.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

func WithScheduler(s Scheduler) Option { return func(a *App) { a.scheduler = s } }

func WithRunner(r Runner) Option { return func(a *App) { a.runners = append(a.runners, r) } }

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnShutdown registers a release function run after every component stopped,
// in reverse registration order.
func (a *App) OnShutdown(fn func()) { a.closers = append(a.closers, fn) }

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, r := range a.runners {
		go func(r Runner) {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("background component stopped", applogger.Error(err))
			}
		}(r)
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			a.log.Info("kafka consumer registered", applogger.String("topic", h.Topic()))
		}
		if err := a.consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
