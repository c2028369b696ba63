package models

// Requests for market-data HTTP endpoints. Defined in domain for consistency and reuse.

type MarketDataRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"BTCUSDT" validate:"required"`
}

type MultiSymbolRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
}

type HistoryRequest struct {
	Symbol   string `query:"symbol" json:"symbol" default:"BTCUSDT" validate:"required"`
	// Native upstream notation plus the "1h"-style shorthand dashboards send;
	// shorthand is normalized before the upstream call.
	Interval string `query:"interval" json:"interval" default:"60" validate:"oneof=1 3 5 15 30 60 120 240 360 720 D W M 1m 5m 15m 30m 1h 2h 4h 1d 1D"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
