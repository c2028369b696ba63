package bybit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(url),
		WithTimeout(2 * time.Second),
		WithRetryDelay(time.Millisecond),
	}
	c := NewClient(append(base, opts...)...)
	c.sleep = func(time.Duration) {}
	return c
}

func TestTickerLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathTickers {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q", got)
		}
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[
			{"symbol":"BTCUSDT","lastPrice":"45123.5","bid1Price":"45123.1","ask1Price":"45124.0",
			 "highPrice24h":"46000","lowPrice24h":"44000","volume24h":"12345.6","price24hPcnt":"0.012"}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	tk, err := c.Ticker(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("ticker: %v", err)
	}
	if tk.LastPrice != 45123.5 || tk.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected ticker %+v", tk)
	}
}

func TestWalletBalanceSignedHeaders(t *testing.T) {
	var gotKey, gotSign, gotTS, gotWindow string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(headerAPIKey)
		gotSign = r.Header.Get(headerSign)
		gotTS = r.Header.Get(headerTimestamp)
		gotWindow = r.Header.Get(headerRecvWindow)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[
			{"accountType":"UNIFIED","totalEquity":"11.33","coin":[
			 {"coin":"USDT","equity":"11.33","walletBalance":"11.33","availableToWithdraw":"10.00"}]}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithCredentials("key", "secret"))
	c.now = func() time.Time { return signTime }

	bal, err := c.WalletBalance(context.Background())
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if bal.Balances["USDT"].Equity != 11.33 {
		t.Fatalf("equity = %v", bal.Balances["USDT"].Equity)
	}
	if gotKey != "key" || gotTS != "1717000000000" || gotWindow != "20000" {
		t.Fatalf("auth headers missing: key=%q ts=%q window=%q", gotKey, gotTS, gotWindow)
	}
	want, _ := Credentials{APIKey: "key", APISecret: "secret"}.Sign("accountType=UNIFIED", "20000", signTime)
	if gotSign != want {
		t.Fatalf("signature mismatch: got %q want %q", gotSign, want)
	}
}

func TestSignedCallWithoutCredentials(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.WalletBalance(context.Background())
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("got %v, want ErrCredentialsMissing", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("no network call should be made without credentials")
	}
}

func TestBudgetExhaustionShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"timeSecond":"1717000000","timeNano":"0"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithBudget(2, time.Minute))
	for i := 0; i < 2; i++ {
		if _, err := c.ServerTime(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := c.ServerTime(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("excess call reached the network: hits=%d", hits)
	}
}

func TestHTTP429MapsToRateLimited(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Ticker(context.Background(), "BTCUSDT")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("rate-limit responses must not be retried: hits=%d", hits)
	}
}

func TestHTTPAuthFailureNoRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithCredentials("key", "secret"))
	_, err := c.WalletBalance(context.Background())
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("got %v, want ErrAuthFailure", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("auth failures must not be retried: hits=%d", hits)
	}
}

func TestEnvelopeRetCodeClassification(t *testing.T) {
	cases := []struct {
		retCode int
		want    error
	}{
		{10003, ErrAuthFailure},
		{10004, ErrAuthFailure},
		{33004, ErrAuthFailure},
		{10024, ErrAuthFailure},
		{10006, ErrRateLimited},
		{10018, ErrRateLimited},
	}
	for _, tc := range cases {
		code := tc.retCode
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"retCode":` + strconv.Itoa(code) + `,"retMsg":"err","result":{}}`))
		}))
		c := newTestClient(srv.URL)
		_, err := c.Ticker(context.Background(), "BTCUSDT")
		if !errors.Is(err, tc.want) {
			t.Errorf("retCode %d: got %v, want %v", tc.retCode, err, tc.want)
		}
		srv.Close()
	}
}

func TestConnectionErrorRetriedOnce(t *testing.T) {
	// server is closed immediately so every dial fails
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	slept := 0
	c := newTestClient(url)
	c.sleep = func(time.Duration) { slept++ }

	_, err := c.Ticker(context.Background(), "BTCUSDT")
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("got %v, want ErrConnection", err)
	}
	if slept != 1 {
		t.Fatalf("expected exactly one retry backoff, got %d", slept)
	}
}

func TestServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Ticker(context.Background(), "BTCUSDT")
	var se *ServerError
	if !errors.As(err, &se) || se.Status != http.StatusBadGateway {
		t.Fatalf("got %v, want ServerError(502)", err)
	}
}

func TestKlinesOrderedOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"symbol":"BTCUSDT","list":[
			["1717000120000","45010","45020","45000","45015","2.0","90030"],
			["1717000060000","45000","45010","44990","45010","1.5","67515"]]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	candles, err := c.Klines(context.Background(), "BTCUSDT", "1", 2)
	if err != nil {
		t.Fatalf("klines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d", len(candles))
	}
	if !candles[0].Start.Before(candles[1].Start) {
		t.Fatalf("candles not oldest-first")
	}
	if candles[0].Open != 45000 || candles[1].Close != 45015 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}
