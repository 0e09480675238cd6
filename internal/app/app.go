// Package app initializes and holds long-lived application services, acting as
// a dependency injection container. It owns the one site registry and the one
// crawl result index of the process together with the main queue they live on.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/config"
	"github.com/JakeFAU/site-audit/internal/id/uuid"
	"github.com/JakeFAU/site-audit/internal/logging"
	"github.com/JakeFAU/site-audit/internal/mainqueue"
	"github.com/JakeFAU/site-audit/internal/metrics"
	"github.com/JakeFAU/site-audit/internal/notify"
	"github.com/JakeFAU/site-audit/internal/notify/sinks"
	"github.com/JakeFAU/site-audit/internal/pagemap"
	"github.com/JakeFAU/site-audit/internal/site"
	"github.com/JakeFAU/site-audit/internal/storedir"
)

// Options are the optional collaborators of an App.
//   - Logger: defaults to a no-op logger.
//   - Registry: Prometheus registry for every collector; defaults to a fresh one.
//   - URLSource: crawler-owned URL listing; nil keeps the index's own catalog.
//   - OnStorageError: called on the main queue for every storage failure,
//     after it has been logged.
//   - TracerProvider: source of the spans around main queue work; defaults to
//     the global provider. Close shuts it down when it supports Shutdown.
type Options struct {
	Logger         *zap.Logger
	Registry       *prometheus.Registry
	URLSource      pagemap.URLSource
	OnStorageError storedir.ErrorReceiver
	TracerProvider trace.TracerProvider
}

const instrumentationName = "github.com/JakeFAU/site-audit/internal/app"

// App holds all the shared, long-lived services for the application.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	queue     *mainqueue.Queue
	center    *notify.Center
	sites     *site.Registry
	index     *pagemap.Index
	metrics   *metrics.Collectors
	promReg   *prometheus.Registry
	dir       *storedir.Directory
	onStorage storedir.ErrorReceiver
	tp        trace.TracerProvider
	tracer    trace.Tracer

	cancel  context.CancelFunc
	stopped chan struct{}
}

// New starts the main queue and builds the registry and index on it. The
// registry begins loading in the background; see WaitLoaded.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	promReg := opts.Registry
	if promReg == nil {
		promReg = prometheus.NewRegistry()
	}
	collectors, err := metrics.New(promReg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	broadcastSink, err := sinks.NewPrometheusSink(promReg)
	if err != nil {
		return nil, fmt.Errorf("init broadcast metrics: %w", err)
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		tp:        tp,
		tracer:    tp.Tracer(instrumentationName),
		cfg:       cfg,
		logger:    logger,
		queue:     mainqueue.New(cfg.Queue.Depth, logging.Component(logger, "mainqueue")),
		metrics:   collectors,
		promReg:   promReg,
		onStorage: opts.OnStorageError,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
	a.dir = storedir.New(cfg.StoreDir(), a.storageError, logging.Component(logger, "storedir"))
	go func() {
		defer close(a.stopped)
		a.queue.Run(runCtx)
	}()

	err = a.queue.Sync(ctx, func() {
		a.center = notify.NewCenter(
			notify.Config{Logger: logging.Component(logger, "notify")},
			sinks.NewLogSink(logging.Component(logger, "broadcast")),
			broadcastSink,
		)
		a.sites = site.NewRegistry(site.Options{
			Directory:  a.dir,
			Dispatcher: a.queue,
			Center:     a.center,
			IDs:        uuid.New(),
			FileName:   cfg.Storage.FileName,
			ItemsKey:   cfg.Storage.ItemsKey,
			AutoSave:   cfg.Storage.AutoSave,
			Logger:     logging.Component(logger, "registry"),
		})
		a.sites.Subscribe(func(notify.Event) {
			all, _ := a.sites.AllSites()
			collectors.SetSites(len(all))
		})
		a.index = pagemap.NewIndex(opts.URLSource)
	})
	if err != nil {
		a.queue.Close()
		cancel()
		return nil, fmt.Errorf("start main queue: %w", err)
	}
	logger.Info("application services initialized",
		zap.String("storage_app", cfg.Storage.AppName),
		zap.Int("queue_depth", cfg.Queue.Depth),
	)
	return a, nil
}

func (a *App) storageError(err error) {
	a.logger.Error("storage error", zap.Error(err))
	if a.onStorage != nil {
		a.onStorage(err)
	}
}

// Do runs fn on the main queue and waits for it.
func (a *App) Do(ctx context.Context, fn func()) error {
	ctx, span := a.tracer.Start(ctx, "mainqueue.Sync")
	defer span.End()
	if err := a.queue.Sync(ctx, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "main queue unavailable")
		return fmt.Errorf("main queue: %w", err)
	}
	return nil
}

// WaitLoaded blocks until the registry has applied its load outcome.
func (a *App) WaitLoaded(ctx context.Context) error {
	select {
	case <-a.sites.Loaded():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for site registry: %w", ctx.Err())
	}
}

// SitesPath returns the location of the persisted registry document.
func (a *App) SitesPath() (string, error) {
	dir, err := a.dir.Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, a.cfg.Storage.FileName), nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Sites returns the registry. Call its methods only inside Do.
func (a *App) Sites() *site.Registry { return a.sites }

// Index returns the crawl result index. Call its methods only inside Do.
func (a *App) Index() *pagemap.Index { return a.index }

// Metrics returns the service collectors.
func (a *App) Metrics() *metrics.Collectors { return a.metrics }

// Tracer returns the tracer the App's spans are created with.
func (a *App) Tracer() trace.Tracer { return a.tracer }

// Gatherer exposes the Prometheus registry for tests and custom exporters.
func (a *App) Gatherer() prometheus.Gatherer { return a.promReg }

// Close flushes pending saves and stops the main queue.
func (a *App) Close(ctx context.Context) error {
	err := a.queue.Sync(ctx, a.sites.Close)
	a.queue.Close()
	select {
	case <-a.stopped:
	case <-ctx.Done():
		a.cancel()
		<-a.stopped
		err = errors.Join(err, ctx.Err())
	}
	a.cancel()
	if err != nil && errors.Is(err, mainqueue.ErrClosed) {
		err = nil
	}
	if sd, ok := a.tp.(interface{ Shutdown(context.Context) error }); ok {
		err = errors.Join(err, sd.Shutdown(ctx))
	}
	if err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
