package models

import "time"

// CoinBalance holds per-coin wallet figures from the unified account.
type CoinBalance struct {
	Coin             string  `json:"coin"`
	Equity           float64 `json:"equity"`
	AvailableBalance float64 `json:"available_balance"`
	WalletBalance    float64 `json:"wallet_balance"`
}

// AccountBalance is the wallet snapshot exposed to dashboards.
type AccountBalance struct {
	TotalEquity    float64                `json:"total_equity"`
	TotalAvailable float64                `json:"total_available"`
	TotalWallet    float64                `json:"total_wallet_balance"`
	Balances       map[string]CoinBalance `json:"balances"`
}

// Position is one open derivatives position.
type Position struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // "Buy" or "Sell"
	Size          float64 `json:"size"`
	AvgPrice      float64 `json:"avg_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealisedPnl float64 `json:"unrealised_pnl"`
	Leverage      float64 `json:"leverage"`
}

// Ticker is the latest market snapshot for one symbol.
type Ticker struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"last_price"`
	Bid1Price    float64 `json:"bid1_price"`
	Ask1Price    float64 `json:"ask1_price"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	Volume24h    float64 `json:"volume_24h"`
	Price24hPcnt float64 `json:"price_24h_pcnt"`
}

// Candle represents an OHLCV record.
type Candle struct {
	Start  time.Time `json:"start"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PortfolioSummary aggregates wallet totals across coins.
type PortfolioSummary struct {
	TotalEquity    float64 `json:"total_equity"`
	TotalAvailable float64 `json:"total_available"`
	TotalWallet    float64 `json:"total_wallet_balance"`
	LockedBalance  float64 `json:"locked_balance"`
	UnrealisedPnl  float64 `json:"unrealised_pnl"`
	ActiveCount    int     `json:"active_positions"`
	TotalCoins     int     `json:"total_coins"`
}

// CoinDetail extends CoinBalance with its share of the portfolio.
type CoinDetail struct {
	CoinBalance
	LockedBalance float64 `json:"locked_balance"`
	Percentage    float64 `json:"percentage_of_portfolio"`
}

// MarketContext carries reference prices shown next to portfolio figures.
type MarketContext struct {
	BTCPrice float64 `json:"btc_price"`
	ETHPrice float64 `json:"eth_price"`
}

// Portfolio is the flattened portfolio view dashboards render directly.
type Portfolio struct {
	Summary   PortfolioSummary      `json:"portfolio_summary"`
	Coins     map[string]CoinDetail `json:"coin_details"`
	Positions []Position            `json:"positions"`
	Market    MarketContext         `json:"market_context"`
}

// TradingStats bundles the three snapshots most dashboards poll together.
type TradingStats struct {
	Account   QueryResult[AccountBalance] `json:"account"`
	Positions QueryResult[[]Position]     `json:"positions"`
	Market    QueryResult[Ticker]         `json:"market"`
}
