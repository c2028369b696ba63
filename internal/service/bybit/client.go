package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"DashPull/internal/domain/models"
	"DashPull/internal/service/ratelimit"
	xhttp "DashPull/pkg/http"
	applogger "DashPull/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	pathServerTime    = "/v5/market/time"
	pathTickers       = "/v5/market/tickers"
	pathKline         = "/v5/market/kline"
	pathWalletBalance = "/v5/account/wallet-balance"
	pathPositionList  = "/v5/position/list"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client executes one REST call at a time against the V5 API: public
// endpoints unsigned, account endpoints signed. Every call is bounded by a
// fixed timeout and consumes the shared rate budget before touching the
// network.
type Client struct {
	baseURL    string
	creds      Credentials
	recvWindow string
	timeout    time.Duration
	retryDelay time.Duration
	budget     *ratelimit.Budget
	limiter    *rate.Limiter
	httpClient *xhttp.Client
	log        *applogger.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new V5 REST client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    "https://api.bybit.com",
		recvWindow: "20000",
		timeout:    5 * time.Second,
		retryDelay: 250 * time.Millisecond,
		budget:     ratelimit.NewBudget(600, time.Minute),
		now:        time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = xhttp.NewClient(xhttp.WithTimeout(c.timeout))
	return c
}

// WithBaseURL sets the API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithCredentials sets the API key pair. Blank credentials leave the client
// in unauthenticated mode: account endpoints short-circuit without a network
// call, public endpoints still work.
func WithCredentials(apiKey, apiSecret string) ClientOption {
	return func(c *Client) { c.creds = Credentials{APIKey: apiKey, APISecret: apiSecret} }
}

// WithRecvWindow sets the signature validity window in milliseconds.
func WithRecvWindow(ms int) ClientOption {
	return func(c *Client) { c.recvWindow = strconv.Itoa(ms) }
}

// WithTimeout bounds each call's total wall-clock time.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithRetryDelay sets the fixed backoff before the single retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.retryDelay = d }
}

// WithBudget sets the shared fixed-window call budget.
func WithBudget(maxCalls int, window time.Duration) ClientOption {
	return func(c *Client) { c.budget = ratelimit.NewBudget(maxCalls, window) }
}

// WithSmoothing adds a token-bucket limiter in front of the window budget so
// a dashboard refresh burst cannot spend the whole window at once.
func WithSmoothing(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// Authenticated reports whether credentials were present at construction.
func (c *Client) Authenticated() bool { return c.creds.Valid() }

// BudgetUsage reports window-budget consumption.
func (c *Client) BudgetUsage() (calls, max int) { return c.budget.Usage() }

// ServerTime fetches the exchange clock, used as a connectivity probe.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	res, err := call[serverTimeResult](c, ctx, pathServerTime, nil, false)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(res.TimeSecond, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time: %w", err)
	}
	return time.Unix(sec, 0), nil
}

// Ticker fetches the spot market snapshot for one symbol.
func (c *Client) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	params := url.Values{"category": {"spot"}, "symbol": {symbol}}
	res, err := call[tickersResult](c, ctx, pathTickers, params, false)
	if err != nil {
		return models.Ticker{}, err
	}
	if len(res.List) == 0 {
		return models.Ticker{}, &APIError{Code: -1, Msg: "empty ticker list for " + symbol}
	}
	return res.List[0].toModel(), nil
}

// Klines fetches up to limit OHLCV bars, returned oldest-first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{
		"category": {"spot"},
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	res, err := call[klineResult](c, ctx, pathKline, params, false)
	if err != nil {
		return nil, err
	}
	return res.toModels(), nil
}

// WalletBalance fetches the unified account balance. Requires credentials.
func (c *Client) WalletBalance(ctx context.Context) (models.AccountBalance, error) {
	params := url.Values{"accountType": {"UNIFIED"}}
	res, err := call[walletResult](c, ctx, pathWalletBalance, params, true)
	if err != nil {
		return models.AccountBalance{}, err
	}
	return res.toModel(), nil
}

// Positions fetches open USDT-settled positions. Requires credentials.
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	params := url.Values{"category": {"linear"}, "settleCoin": {"USDT"}}
	res, err := call[positionsResult](c, ctx, pathPositionList, params, true)
	if err != nil {
		return nil, err
	}
	return res.toModels(), nil
}

// call runs one GET, decodes the envelope and unmarshals its result.
func call[T any](c *Client, ctx context.Context, path string, params url.Values, signed bool) (T, error) {
	var zero T
	raw, err := c.get(ctx, path, params, signed)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode %s result: %w", path, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, signed bool) (json.RawMessage, error) {
	if signed && !c.creds.Valid() {
		return nil, ErrCredentialsMissing
	}
	if !c.budget.Allow() {
		c.warn("rate budget exhausted", path)
		return nil, ErrRateLimited
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.warn("smoothing limiter denied call", path)
		return nil, ErrRateLimited
	}

	query := ""
	if len(params) > 0 {
		query = params.Encode()
	}
	endpoint := c.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}

	var headers map[string]string
	if signed {
		var err error
		headers, err = c.creds.AuthHeaders(query, c.recvWindow, c.now())
		if err != nil {
			return nil, err
		}
	}

	// One retry, connection-class failures only.
	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			c.sleep(c.retryDelay)
		}
		raw, err := c.doOnce(ctx, endpoint, headers)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, endpoint string, headers map[string]string) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.httpClient.SendRequest(reqCtx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     endpoint,
		Headers: headers,
	})
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthFailure
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &ServerError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportErr(err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.RetCode != 0 {
		return nil, classifyRetCode(env.RetCode, env.RetMsg)
	}
	return env.Result, nil
}

func (c *Client) warn(msg, path string) {
	if c.log != nil {
		c.log.Warn("bybit: "+msg, applogger.String("path", path))
	}
}
