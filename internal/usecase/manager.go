package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DashPull/internal/domain/models"
	domrepo "DashPull/internal/domain/repository"
	"DashPull/internal/service/bybit"
	icache "DashPull/internal/service/cache"
	applogger "DashPull/pkg/logger"
)

// Reason recorded when the breaker skips the live tier.
const reasonCircuitOpen = "CircuitOpen"

// TTLConfig carries the per-data-class cache lifetimes. Balance data changes
// slowly and live calls for it are the most rate-limit-sensitive, so it gets
// the long TTL; market data staleness is visible on dashboards, so it gets
// the short one.
type TTLConfig struct {
	Balance   time.Duration
	Market    time.Duration
	History   time.Duration
	Portfolio time.Duration
}

// DataManager is the only component dashboards interact with. Every query
// method resolves live -> cached -> fallback and always returns a well-typed
// QueryResult; transport failures never propagate upward.
//
// The manager is the single writer to its cache namespace.
type DataManager struct {
	exchange     domrepo.Exchange
	cache        icache.BytesCache
	breaker      *Breaker
	metrics      domrepo.Metrics
	log          *applogger.Logger
	ttl          TTLConfig
	production   bool
	cacheBackend string
}

// NewDataManager wires the manager. Construction is cheap; the expensive
// parts (credential loading, HTTP client) live in the injected exchange.
func NewDataManager(
	exchange domrepo.Exchange,
	bytesCache icache.BytesCache,
	breaker *Breaker,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	ttl TTLConfig,
	production bool,
	cacheBackend string,
) *DataManager {
	return &DataManager{
		exchange:     exchange,
		cache:        bytesCache,
		breaker:      breaker,
		metrics:      metrics,
		log:          log,
		ttl:          ttl,
		production:   production,
		cacheBackend: cacheBackend,
	}
}

// AccountBalance returns the unified wallet snapshot.
func (m *DataManager) AccountBalance(ctx context.Context) models.QueryResult[models.AccountBalance] {
	return resolve(m, ctx, "balance", "balance:unified", m.ttl.Balance, true,
		m.exchange.WalletBalance, fallbackBalance)
}

// Positions returns open USDT-settled positions.
func (m *DataManager) Positions(ctx context.Context) models.QueryResult[[]models.Position] {
	return resolve(m, ctx, "positions", "positions:linear", m.ttl.Balance, true,
		m.exchange.Positions, fallbackPositions)
}

// MarketData returns the latest ticker for one symbol.
func (m *DataManager) MarketData(ctx context.Context, symbol string) models.QueryResult[models.Ticker] {
	res := resolve(m, ctx, "market", marketKey(symbol), m.ttl.Market, false,
		func(ctx context.Context) (models.Ticker, error) {
			return m.exchange.Ticker(ctx, symbol)
		},
		func() models.Ticker { return fallbackTicker(symbol) })
	if res.Source == models.SourceLive {
		m.metrics.RecordLastPrice(symbol, res.Data.LastPrice)
	}
	return res
}

// HistoricalData returns up to limit OHLCV bars, oldest-first.
func (m *DataManager) HistoricalData(ctx context.Context, symbol, interval string, limit int) models.QueryResult[[]models.Candle] {
	interval = domrepo.NormalizeInterval(interval)
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	key := fmt.Sprintf("history:%s:%s:%d", symbol, interval, limit)
	return resolve(m, ctx, "history", key, m.ttl.History, false,
		func(ctx context.Context) ([]models.Candle, error) {
			return m.exchange.Klines(ctx, symbol, interval, limit)
		},
		func() []models.Candle { return fallbackCandles(symbol, interval, limit) })
}

// MultiSymbolData returns tickers for several symbols, one QueryResult each
// so a single degraded symbol does not degrade the batch.
func (m *DataManager) MultiSymbolData(ctx context.Context, symbols []string) map[string]models.QueryResult[models.Ticker] {
	out := make(map[string]models.QueryResult[models.Ticker], len(symbols))
	for _, s := range symbols {
		out[s] = m.MarketData(ctx, s)
	}
	return out
}

// PortfolioData returns the flattened portfolio view: totals, per-coin
// breakdown, positions summary and reference prices. The aggregate is cached
// under its own key with an extended TTL because it fans out into several
// upstream calls.
func (m *DataManager) PortfolioData(ctx context.Context) models.QueryResult[models.Portfolio] {
	const key = "portfolio:summary"
	if data, ok := getCached[models.Portfolio](m, key); ok {
		m.metrics.RecordQuery("portfolio", string(models.SourceCached))
		return models.Cached(data, "")
	}

	bal := m.AccountBalance(ctx)
	pos := m.Positions(ctx)
	btc := m.MarketData(ctx, "BTCUSDT")
	eth := m.MarketData(ctx, "ETHUSDT")

	p := buildPortfolio(bal.Data, pos.Data, btc.Data, eth.Data)
	res := models.QueryResult[models.Portfolio]{
		Data:      p,
		Source:    bal.Source,
		FetchedAt: time.Now(),
		Error:     bal.Error,
	}
	if bal.Source == models.SourceLive {
		m.put(key, p, m.ttl.Portfolio)
	}
	m.metrics.RecordQuery("portfolio", string(res.Source))
	return res
}

// TradingStats bundles the snapshots most dashboards poll together. The outer
// envelope carries the worst source tier of the three components so callers
// can branch on degradation without unpacking them.
func (m *DataManager) TradingStats(ctx context.Context) models.QueryResult[models.TradingStats] {
	stats := models.TradingStats{
		Account:   m.AccountBalance(ctx),
		Positions: m.Positions(ctx),
		Market:    m.MarketData(ctx, "BTCUSDT"),
	}
	source, reason := models.SourceLive, ""
	for _, part := range []struct {
		src models.Source
		err string
	}{
		{stats.Account.Source, stats.Account.Error},
		{stats.Positions.Source, stats.Positions.Error},
		{stats.Market.Source, stats.Market.Error},
	} {
		if sourceRank(part.src) > sourceRank(source) {
			source, reason = part.src, part.err
		}
	}
	return models.QueryResult[models.TradingStats]{
		Data:      stats,
		Source:    source,
		FetchedAt: time.Now(),
		Error:     reason,
	}
}

// sourceRank orders tiers by degradation: live < cached < fallback.
func sourceRank(s models.Source) int {
	switch s {
	case models.SourceLive:
		return 0
	case models.SourceCached:
		return 1
	default:
		return 2
	}
}

// Status reports the manager's operational state.
func (m *DataManager) Status() models.ManagerStatus {
	env := "testnet"
	if m.production {
		env = "production"
	}
	entries := -1
	if counter, ok := m.cache.(interface{ Len() int }); ok {
		entries = counter.Len()
	}
	calls, max := m.exchange.BudgetUsage()
	return models.ManagerStatus{
		Environment:   env,
		Authenticated: m.exchange.Authenticated(),
		BreakerState:  m.breaker.State(),
		CacheBackend:  m.cacheBackend,
		CacheEntries:  entries,
		RateBudget:    models.RateBudgetStatus{CallsInWindow: calls, MaxCalls: max},
		Timestamp:     time.Now(),
	}
}

// PrimeTicker lets the public WebSocket stream feed the market-data cache.
// The manager stays the single cache writer.
func (m *DataManager) PrimeTicker(symbol string, t models.Ticker) {
	m.put(marketKey(symbol), t, m.ttl.Market)
	m.metrics.RecordLastPrice(symbol, t.LastPrice)
}

func marketKey(symbol string) string { return "market:" + symbol }

// resolve implements the 3-tier policy shared by every query method:
//  1. skip live when unauthenticated (for auth endpoints) or the breaker is open
//  2. try live; on success cache and return source=live
//  3. on failure serve the cached value if one is fresh, source=cached
//  4. otherwise synthesize a schema-conformant placeholder, source=fallback
func resolve[T any](
	m *DataManager,
	ctx context.Context,
	op, key string,
	ttl time.Duration,
	requiresAuth bool,
	fetch func(context.Context) (T, error),
	fallback func() T,
) models.QueryResult[T] {
	start := time.Now()
	defer func() { m.metrics.RecordLatency(op, time.Since(start).Seconds()) }()

	var reason string
	switch {
	case requiresAuth && !m.exchange.Authenticated():
		reason = bybit.ErrorKind(bybit.ErrCredentialsMissing)
	case !m.breaker.Allow():
		reason = reasonCircuitOpen
	default:
		data, err := fetch(ctx)
		if err == nil {
			m.breaker.Success()
			m.put(key, data, ttl)
			m.metrics.RecordQuery(op, string(models.SourceLive))
			return models.Live(data)
		}
		m.recordFailure(op, err)
		reason = bybit.ErrorKind(err)
	}

	if data, ok := getCached[T](m, key); ok {
		m.metrics.RecordQuery(op, string(models.SourceCached))
		return models.Cached(data, reason)
	}
	m.metrics.RecordQuery(op, string(models.SourceFallback))
	return models.Fallback(fallback(), reason)
}

// recordFailure feeds the breaker. Auth rejections and server-reported rate
// limits open it immediately; connection-class failures accumulate.
func (m *DataManager) recordFailure(op string, err error) {
	kind := bybit.ErrorKind(err)
	m.metrics.RecordError(kind)
	if m.log != nil {
		m.log.Warn("live fetch failed", applogger.String("op", op), applogger.String("kind", kind), applogger.Error(err))
	}
	if errors.Is(err, bybit.ErrAuthFailure) || errors.Is(err, bybit.ErrRateLimited) {
		m.breaker.Trip()
		return
	}
	m.breaker.Failure()
}

func (m *DataManager) put(key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		if m.log != nil {
			m.log.Error("cache marshal failed", applogger.String("key", key), applogger.Error(err))
		}
		return
	}
	if err := m.cache.SetBytes(key, b, ttl); err != nil && m.log != nil {
		m.log.Warn("cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}

func getCached[T any](m *DataManager, key string) (T, bool) {
	var zero T
	b, ok, err := m.cache.GetBytes(key)
	if err != nil || !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, false
	}
	return v, true
}

func buildPortfolio(bal models.AccountBalance, positions []models.Position, btc, eth models.Ticker) models.Portfolio {
	coins := make(map[string]models.CoinDetail, len(bal.Balances))
	for coin, cb := range bal.Balances {
		detail := models.CoinDetail{
			CoinBalance:   cb,
			LockedBalance: cb.WalletBalance - cb.AvailableBalance,
		}
		if bal.TotalEquity > 0 {
			detail.Percentage = cb.Equity / bal.TotalEquity * 100
		}
		coins[coin] = detail
	}

	var unrealised float64
	for _, p := range positions {
		unrealised += p.UnrealisedPnl
	}

	return models.Portfolio{
		Summary: models.PortfolioSummary{
			TotalEquity:    bal.TotalEquity,
			TotalAvailable: bal.TotalAvailable,
			TotalWallet:    bal.TotalWallet,
			LockedBalance:  bal.TotalWallet - bal.TotalAvailable,
			UnrealisedPnl:  unrealised,
			ActiveCount:    len(positions),
			TotalCoins:     len(coins),
		},
		Coins:     coins,
		Positions: positions,
		Market: models.MarketContext{
			BTCPrice: btc.LastPrice,
			ETHPrice: eth.LastPrice,
		},
	}
}
