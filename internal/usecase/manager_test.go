package usecase

import (
	"context"
	"testing"
	"time"

	"DashPull/internal/domain/models"
	"DashPull/internal/service/bybit"
	icache "DashPull/internal/service/cache"
)

// mockExchange counts calls and returns programmable results.
type mockExchange struct {
	authenticated bool

	balance    models.AccountBalance
	balanceErr error
	ticker     models.Ticker
	tickerErr  error
	positions  []models.Position
	posErr     error
	candles    []models.Candle
	candlesErr error

	balanceCalls int
	tickerCalls  int
	posCalls     int
	klineCalls   int
}

func (m *mockExchange) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}

func (m *mockExchange) WalletBalance(ctx context.Context) (models.AccountBalance, error) {
	m.balanceCalls++
	return m.balance, m.balanceErr
}

func (m *mockExchange) Positions(ctx context.Context) ([]models.Position, error) {
	m.posCalls++
	return m.positions, m.posErr
}

func (m *mockExchange) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	m.tickerCalls++
	return m.ticker, m.tickerErr
}

func (m *mockExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	m.klineCalls++
	return m.candles, m.candlesErr
}

func (m *mockExchange) Authenticated() bool     { return m.authenticated }
func (m *mockExchange) BudgetUsage() (int, int) { return 0, 600 }

type nopMetrics struct{}

func (nopMetrics) RecordQuery(endpoint, source string)          {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}

func testTTL() TTLConfig {
	return TTLConfig{
		Balance:   time.Minute,
		Market:    30 * time.Second,
		History:   2 * time.Minute,
		Portfolio: 5 * time.Minute,
	}
}

func newTestManager(ex *mockExchange) *DataManager {
	return NewDataManager(ex, icache.NewTTLCache(), NewBreaker(3, 30*time.Second, time.Minute),
		nopMetrics{}, nil, testTTL(), true, "memory")
}

func usdtBalance(equity float64) models.AccountBalance {
	return models.AccountBalance{
		TotalEquity: equity,
		Balances: map[string]models.CoinBalance{
			"USDT": {Coin: "USDT", Equity: equity, AvailableBalance: equity, WalletBalance: equity},
		},
	}
}

func TestBalanceLivePassthrough(t *testing.T) {
	ex := &mockExchange{authenticated: true, balance: usdtBalance(11.33)}
	m := newTestManager(ex)

	res := m.AccountBalance(context.Background())
	if res.Source != models.SourceLive {
		t.Fatalf("source = %s, want live", res.Source)
	}
	if res.Data.Balances["USDT"].Equity != 11.33 {
		t.Fatalf("equity = %v, want 11.33 untransformed", res.Data.Balances["USDT"].Equity)
	}
	if res.Error != "" {
		t.Fatalf("live result carries error %q", res.Error)
	}
}

func TestBalanceCachedAfterFailure(t *testing.T) {
	ex := &mockExchange{authenticated: true, balance: usdtBalance(11.33)}
	m := newTestManager(ex)

	if res := m.AccountBalance(context.Background()); res.Source != models.SourceLive {
		t.Fatalf("priming call source = %s", res.Source)
	}

	ex.balanceErr = bybit.ErrConnection
	res := m.AccountBalance(context.Background())
	if res.Source != models.SourceCached {
		t.Fatalf("source = %s, want cached", res.Source)
	}
	if res.Data.Balances["USDT"].Equity != 11.33 {
		t.Fatalf("cached equity = %v, want 11.33", res.Data.Balances["USDT"].Equity)
	}
	if res.Error != "ConnectionError" {
		t.Fatalf("error = %q, want ConnectionError", res.Error)
	}
}

func TestBalanceFallbackSchemaStable(t *testing.T) {
	ex := &mockExchange{authenticated: true, balanceErr: bybit.ErrConnection}
	m := newTestManager(ex)

	res := m.AccountBalance(context.Background())
	if res.Source != models.SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if res.Data.Balances == nil {
		t.Fatalf("fallback balance must have the live shape")
	}
	if _, ok := res.Data.Balances["USDT"]; !ok {
		t.Fatalf("fallback balance missing USDT entry")
	}
	if res.Error == "" {
		t.Fatalf("fallback must carry a reason")
	}
}

func TestCredentialsMissingScenario(t *testing.T) {
	ex := &mockExchange{authenticated: false}
	m := newTestManager(ex)

	res := m.AccountBalance(context.Background())
	if res.Source != models.SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if res.Error != "CredentialsMissing" {
		t.Fatalf("error = %q, want CredentialsMissing", res.Error)
	}
	if res.Data.TotalEquity != 0 {
		t.Fatalf("fallback balance must be zero-valued, equity = %v", res.Data.TotalEquity)
	}
	if ex.balanceCalls != 0 {
		t.Fatalf("unauthenticated manager must not invoke transport, calls=%d", ex.balanceCalls)
	}
}

func TestPublicEndpointWorksUnauthenticated(t *testing.T) {
	ex := &mockExchange{authenticated: false, ticker: models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000}}
	m := newTestManager(ex)

	res := m.MarketData(context.Background(), "BTCUSDT")
	if res.Source != models.SourceLive {
		t.Fatalf("public market data should stay live without credentials, got %s", res.Source)
	}
	if ex.tickerCalls != 1 {
		t.Fatalf("tickerCalls = %d", ex.tickerCalls)
	}
}

func TestIdempotentWithinTTL(t *testing.T) {
	ex := &mockExchange{authenticated: true, ticker: models.Ticker{Symbol: "BTCUSDT", LastPrice: 45123.5}}
	m := newTestManager(ex)

	first := m.MarketData(context.Background(), "BTCUSDT")
	ex.tickerErr = bybit.ErrTimeout
	second := m.MarketData(context.Background(), "BTCUSDT")

	if first.Data.LastPrice != second.Data.LastPrice {
		t.Fatalf("values differ within TTL: %v vs %v", first.Data.LastPrice, second.Data.LastPrice)
	}
	if second.Source != models.SourceCached {
		t.Fatalf("second source = %s, want cached", second.Source)
	}
}

func TestRateLimitedTripsBreaker(t *testing.T) {
	ex := &mockExchange{authenticated: true, balanceErr: bybit.ErrRateLimited}
	m := newTestManager(ex)

	res := m.AccountBalance(context.Background())
	if res.Source != models.SourceFallback {
		t.Fatalf("first source = %s", res.Source)
	}
	if ex.balanceCalls != 1 {
		t.Fatalf("balanceCalls = %d", ex.balanceCalls)
	}

	// second call within cooldown: transport must not be invoked
	res = m.AccountBalance(context.Background())
	if res.Source != models.SourceCached && res.Source != models.SourceFallback {
		t.Fatalf("second source = %s", res.Source)
	}
	if ex.balanceCalls != 1 {
		t.Fatalf("breaker open, transport invoked anyway: calls=%d", ex.balanceCalls)
	}
	if res.Error != reasonCircuitOpen {
		t.Fatalf("error = %q, want %q", res.Error, reasonCircuitOpen)
	}
}

func TestAuthFailureTripsBreakerImmediately(t *testing.T) {
	ex := &mockExchange{authenticated: true, balanceErr: bybit.ErrAuthFailure}
	m := newTestManager(ex)

	_ = m.AccountBalance(context.Background())
	_ = m.AccountBalance(context.Background())
	if ex.balanceCalls != 1 {
		t.Fatalf("auth failure should disable live calls, calls=%d", ex.balanceCalls)
	}
}

func TestBreakerOpensAfterRepeatedConnectionFailures(t *testing.T) {
	ex := &mockExchange{authenticated: true, tickerErr: bybit.ErrConnection}
	m := newTestManager(ex)

	for i := 0; i < 3; i++ {
		_ = m.MarketData(context.Background(), "BTCUSDT")
	}
	if ex.tickerCalls != 3 {
		t.Fatalf("tickerCalls = %d before breaker opens", ex.tickerCalls)
	}
	_ = m.MarketData(context.Background(), "BTCUSDT")
	if ex.tickerCalls != 3 {
		t.Fatalf("breaker open after 3 failures, transport invoked anyway: calls=%d", ex.tickerCalls)
	}
}

func TestBreakerCooldownAllowsRetry(t *testing.T) {
	clock := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	breaker := NewBreaker(1, 30*time.Second, time.Minute)
	breaker.now = func() time.Time { return clock }

	ex := &mockExchange{authenticated: true, tickerErr: bybit.ErrConnection}
	m := NewDataManager(ex, icache.NewTTLCache(), breaker, nopMetrics{}, nil, testTTL(), true, "memory")

	_ = m.MarketData(context.Background(), "BTCUSDT")
	_ = m.MarketData(context.Background(), "BTCUSDT")
	if ex.tickerCalls != 1 {
		t.Fatalf("tickerCalls = %d while open", ex.tickerCalls)
	}

	clock = clock.Add(61 * time.Second)
	ex.tickerErr = nil
	ex.ticker = models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000}
	res := m.MarketData(context.Background(), "BTCUSDT")
	if res.Source != models.SourceLive {
		t.Fatalf("after cooldown source = %s, want live", res.Source)
	}
}

func TestHistoricalFallbackShape(t *testing.T) {
	ex := &mockExchange{authenticated: true, candlesErr: bybit.ErrTimeout}
	m := newTestManager(ex)

	res := m.HistoricalData(context.Background(), "BTCUSDT", "1h", 50)
	if res.Source != models.SourceFallback {
		t.Fatalf("source = %s", res.Source)
	}
	if len(res.Data) != 50 {
		t.Fatalf("fallback candles = %d, want 50", len(res.Data))
	}
	for i, c := range res.Data {
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("candle %d violates OHLC ordering: %+v", i, c)
		}
		if i > 0 && !res.Data[i-1].Start.Before(c.Start) {
			t.Fatalf("candles not strictly increasing at %d", i)
		}
	}
}

func TestPortfolioAggregation(t *testing.T) {
	ex := &mockExchange{
		authenticated: true,
		balance:       usdtBalance(10000),
		positions: []models.Position{
			{Symbol: "BTCUSDT", Side: "Buy", Size: 0.5, UnrealisedPnl: 123.4},
		},
		ticker: models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000},
	}
	m := newTestManager(ex)

	res := m.PortfolioData(context.Background())
	if res.Source != models.SourceLive {
		t.Fatalf("source = %s", res.Source)
	}
	if res.Data.Summary.UnrealisedPnl != 123.4 {
		t.Fatalf("unrealised pnl = %v", res.Data.Summary.UnrealisedPnl)
	}
	if res.Data.Summary.ActiveCount != 1 {
		t.Fatalf("active positions = %d", res.Data.Summary.ActiveCount)
	}
	if pct := res.Data.Coins["USDT"].Percentage; pct != 100 {
		t.Fatalf("USDT share = %v, want 100", pct)
	}

	// aggregate cache serves the second call without refetching
	balCalls := ex.balanceCalls
	res = m.PortfolioData(context.Background())
	if res.Source != models.SourceCached {
		t.Fatalf("second portfolio source = %s, want cached", res.Source)
	}
	if ex.balanceCalls != balCalls {
		t.Fatalf("portfolio cache miss refetched balance")
	}
}

func TestPrimeTickerFeedsCache(t *testing.T) {
	ex := &mockExchange{authenticated: true, tickerErr: bybit.ErrConnection}
	m := newTestManager(ex)

	m.PrimeTicker("BTCUSDT", models.Ticker{Symbol: "BTCUSDT", LastPrice: 45999})
	res := m.MarketData(context.Background(), "BTCUSDT")
	if res.Source != models.SourceCached {
		t.Fatalf("source = %s, want cached", res.Source)
	}
	if res.Data.LastPrice != 45999 {
		t.Fatalf("primed price = %v", res.Data.LastPrice)
	}
}

func TestMultiSymbolIndependence(t *testing.T) {
	ex := &mockExchange{authenticated: true, ticker: models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000}}
	m := newTestManager(ex)

	out := m.MultiSymbolData(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	if len(out) != 2 {
		t.Fatalf("results = %d", len(out))
	}
	for sym, res := range out {
		if res.Source != models.SourceLive {
			t.Fatalf("%s source = %s", sym, res.Source)
		}
	}
}

func TestStatusReportsState(t *testing.T) {
	ex := &mockExchange{authenticated: true}
	m := newTestManager(ex)

	st := m.Status()
	if st.Environment != "production" || !st.Authenticated {
		t.Fatalf("status %+v", st)
	}
	if st.BreakerState != "closed" {
		t.Fatalf("breaker state = %q", st.BreakerState)
	}
	if st.RateBudget.MaxCalls != 600 {
		t.Fatalf("rate budget %+v", st.RateBudget)
	}
}

func TestTradingStatsAllLive(t *testing.T) {
	ex := &mockExchange{
		authenticated: true,
		balance:       usdtBalance(500),
		ticker:        models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000},
	}
	m := newTestManager(ex)

	res := m.TradingStats(context.Background())
	if res.Source != models.SourceLive {
		t.Fatalf("source = %s, want live", res.Source)
	}
	if res.Error != "" {
		t.Fatalf("live stats carry error %q", res.Error)
	}
	if res.Data.Account.Data.TotalEquity != 500 {
		t.Fatalf("equity = %v", res.Data.Account.Data.TotalEquity)
	}
}

func TestTradingStatsWorstSourceWins(t *testing.T) {
	ex := &mockExchange{
		authenticated: true,
		balance:       usdtBalance(500),
		balanceErr:    bybit.ErrConnection,
		ticker:        models.Ticker{Symbol: "BTCUSDT", LastPrice: 45000},
	}
	m := newTestManager(ex)

	// no cache primed, so the failed balance degrades to fallback while
	// positions and market stay live; the envelope reports the worst tier
	res := m.TradingStats(context.Background())
	if res.Source != models.SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if res.Error != "ConnectionError" {
		t.Fatalf("error = %q, want ConnectionError", res.Error)
	}
	if res.Data.Market.Source != models.SourceLive {
		t.Fatalf("market source = %s, want live", res.Data.Market.Source)
	}
}
