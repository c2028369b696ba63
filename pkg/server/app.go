package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"DashPull/internal/service/bybit"
	"DashPull/pkg/config"
	xhttp "DashPull/pkg/http"
	applogger "DashPull/pkg/logger"
)

// App encapsulates the entire application lifecycle: the HTTP API, the
// optional public ticker stream, and graceful shutdown of both.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	stream      *bybit.Stream
	cacheCloser io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	stream *bybit.Stream,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: handler,
		stream:      stream,
	}
}

// SetCacheCloser registers a cache backend that must be closed on shutdown.
func (a *App) SetCacheCloser(c io.Closer) { a.cacheCloser = c }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	if a.stream != nil && a.cfg.Stream.Enabled {
		go func() {
			if err := a.stream.Connect(ctx); err != nil {
				a.log.Warn("stream connect failed, reconnect loop will retry", applogger.Error(err))
			} else if err := a.stream.Subscribe(ctx); err != nil {
				a.log.Warn("stream subscribe failed", applogger.Error(err))
			}
			a.stream.Run(ctx)
		}()
		a.log.Info("ticker stream started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("api listening",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment),
		applogger.Bool("authenticated", a.cfg.Authenticated()),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.cacheCloser != nil {
		if err := a.cacheCloser.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
