package di

import (
	"fmt"
	"io"

	"DashPull/internal/domain/repository"
	"DashPull/internal/handler/api"
	"DashPull/internal/service/bybit"
	icache "DashPull/internal/service/cache"
	"DashPull/internal/usecase"
	"DashPull/pkg/config"
	xhttp "DashPull/pkg/http"
	applogger "DashPull/pkg/logger"
	"DashPull/pkg/metrics"
	"DashPull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache selects the cache backend from config.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Backend == "redis" {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix + ":",
		})
	}
	return icache.NewTTLCache()
}

// ProvideExchange creates the V5 REST client.
func ProvideExchange(cfg *config.Config, l *applogger.Logger) repository.Exchange {
	recvWindow := xhttp.ParseIntDefault(cfg.Bybit.RecvWindow, 20000)
	return bybit.NewClient(
		bybit.WithBaseURL(cfg.Bybit.BaseURL),
		bybit.WithCredentials(cfg.Bybit.APIKey, cfg.Bybit.APISecret),
		bybit.WithRecvWindow(recvWindow),
		bybit.WithTimeout(cfg.Bybit.RequestTimeout),
		bybit.WithRetryDelay(cfg.Bybit.RetryDelay),
		bybit.WithBudget(cfg.RateLimit.MaxCallsPerWindow, cfg.RateLimit.Window),
		bybit.WithSmoothing(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		bybit.WithLogger(l),
	)
}

// ProvideBreaker creates the circuit breaker guarding the live tier.
func ProvideBreaker(cfg *config.Config) *usecase.Breaker {
	return usecase.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Window, cfg.Breaker.Cooldown)
}

// ProvideManager creates the shared data manager. It goes through the
// construct-once accessor so out-of-graph consumers get the same instance.
func ProvideManager(
	exchange repository.Exchange,
	bytesCache icache.BytesCache,
	breaker *usecase.Breaker,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.DataManager {
	return usecase.Instance(func() *usecase.DataManager {
		return usecase.NewDataManager(
			exchange,
			bytesCache,
			breaker,
			m,
			l,
			usecase.TTLConfig{
				Balance:   cfg.Cache.BalanceTTL,
				Market:    cfg.Cache.MarketTTL,
				History:   cfg.Cache.HistoryTTL,
				Portfolio: cfg.Cache.PortfolioTTL,
			},
			cfg.Bybit.UseProduction,
			cfg.Cache.Backend,
		)
	})
}

// ProvideStream creates the public ticker stream feeding the manager's cache.
func ProvideStream(cfg *config.Config, manager *usecase.DataManager, l *applogger.Logger) *bybit.Stream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return bybit.NewStream(
		cfg.Bybit.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		manager,
		l,
	)
}

// ProvideHandler creates the HTTP route handler.
func ProvideHandler(l *applogger.Logger, manager *usecase.DataManager) xhttp.Handler {
	return api.NewMarketEchoHandler(l, manager)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	stream *bybit.Stream,
	bytesCache icache.BytesCache,
) *server.App {
	app := server.New(cfg, l, handler, stream)
	if closer, ok := bytesCache.(io.Closer); ok {
		app.SetCacheCloser(closer)
	}
	return app
}
