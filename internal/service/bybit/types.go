package bybit

import (
	"encoding/json"
	"strconv"
	"time"

	"DashPull/internal/domain/models"
)

// envelope is the top-level V5 response shape. retCode 0 means success;
// anything else is an envelope-level error even on HTTP 200.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type serverTimeResult struct {
	TimeSecond string `json:"timeSecond"`
	TimeNano   string `json:"timeNano"`
}

type tickersResult struct {
	Category string      `json:"category"`
	List     []rawTicker `json:"list"`
}

type rawTicker struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	Bid1Price    string `json:"bid1Price"`
	Ask1Price    string `json:"ask1Price"`
	HighPrice24h string `json:"highPrice24h"`
	LowPrice24h  string `json:"lowPrice24h"`
	Volume24h    string `json:"volume24h"`
	Price24hPcnt string `json:"price24hPcnt"`
}

func (t rawTicker) toModel() models.Ticker {
	return models.Ticker{
		Symbol:       t.Symbol,
		LastPrice:    parseFloat(t.LastPrice),
		Bid1Price:    parseFloat(t.Bid1Price),
		Ask1Price:    parseFloat(t.Ask1Price),
		High24h:      parseFloat(t.HighPrice24h),
		Low24h:       parseFloat(t.LowPrice24h),
		Volume24h:    parseFloat(t.Volume24h),
		Price24hPcnt: parseFloat(t.Price24hPcnt),
	}
}

// klineResult rows arrive as string tuples, newest first:
// [startMs, open, high, low, close, volume, turnover].
type klineResult struct {
	Symbol string     `json:"symbol"`
	List   [][]string `json:"list"`
}

func (k klineResult) toModels() []models.Candle {
	candles := make([]models.Candle, 0, len(k.List))
	// reverse so callers get oldest-first series
	for i := len(k.List) - 1; i >= 0; i-- {
		row := k.List[i]
		if len(row) < 6 {
			continue
		}
		ms, _ := strconv.ParseInt(row[0], 10, 64)
		candles = append(candles, models.Candle{
			Start:  time.UnixMilli(ms),
			Open:   parseFloat(row[1]),
			High:   parseFloat(row[2]),
			Low:    parseFloat(row[3]),
			Close:  parseFloat(row[4]),
			Volume: parseFloat(row[5]),
		})
	}
	return candles
}

type walletResult struct {
	List []rawWalletAccount `json:"list"`
}

type rawWalletAccount struct {
	AccountType string          `json:"accountType"`
	TotalEquity string          `json:"totalEquity"`
	Coin        []rawCoinUnited `json:"coin"`
}

type rawCoinUnited struct {
	Coin                string `json:"coin"`
	Equity              string `json:"equity"`
	WalletBalance       string `json:"walletBalance"`
	AvailableToWithdraw string `json:"availableToWithdraw"`
}

func (w walletResult) toModel() models.AccountBalance {
	bal := models.AccountBalance{Balances: make(map[string]models.CoinBalance)}
	for _, acct := range w.List {
		for _, c := range acct.Coin {
			if c.Coin == "" {
				continue
			}
			avail := parseFloat(c.AvailableToWithdraw)
			wallet := parseFloat(c.WalletBalance)
			if avail == 0 {
				avail = wallet
			}
			cb := models.CoinBalance{
				Coin:             c.Coin,
				Equity:           parseFloat(c.Equity),
				AvailableBalance: avail,
				WalletBalance:    wallet,
			}
			bal.Balances[c.Coin] = cb
			bal.TotalEquity += cb.Equity
			bal.TotalAvailable += cb.AvailableBalance
			bal.TotalWallet += cb.WalletBalance
		}
	}
	return bal
}

type positionsResult struct {
	List []rawPosition `json:"list"`
}

type rawPosition struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Size          string `json:"size"`
	AvgPrice      string `json:"avgPrice"`
	MarkPrice     string `json:"markPrice"`
	UnrealisedPnl string `json:"unrealisedPnl"`
	Leverage      string `json:"leverage"`
}

func (p positionsResult) toModels() []models.Position {
	out := make([]models.Position, 0, len(p.List))
	for _, r := range p.List {
		out = append(out, models.Position{
			Symbol:        r.Symbol,
			Side:          r.Side,
			Size:          parseFloat(r.Size),
			AvgPrice:      parseFloat(r.AvgPrice),
			MarkPrice:     parseFloat(r.MarkPrice),
			UnrealisedPnl: parseFloat(r.UnrealisedPnl),
			Leverage:      parseFloat(r.Leverage),
		})
	}
	return out
}

// parseFloat tolerates the empty strings the API uses for absent numerics.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
