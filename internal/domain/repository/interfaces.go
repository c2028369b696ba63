package repository

import (
	"context"
	"time"

	"DashPull/internal/domain/models"
)

// Exchange is the transport surface the data manager resolves live data
// through. Implementations must surface typed errors from the exchange error
// taxonomy so the manager can map failures to cache/fallback tiers.
type Exchange interface {
	ServerTime(ctx context.Context) (time.Time, error)
	WalletBalance(ctx context.Context) (models.AccountBalance, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Ticker(ctx context.Context, symbol string) (models.Ticker, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// Authenticated reports whether credentials were present at construction.
	// The answer never changes for the process lifetime.
	Authenticated() bool

	// BudgetUsage reports window-budget consumption for status reporting.
	BudgetUsage() (calls, max int)
}

type Metrics interface {
	RecordQuery(endpoint, source string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
