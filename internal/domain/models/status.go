package models

import "time"

// RateBudgetStatus reports window-budget consumption.
type RateBudgetStatus struct {
	CallsInWindow int `json:"calls_in_window"`
	MaxCalls      int `json:"max_calls_per_window"`
}

// ManagerStatus is the operational snapshot exposed on /api/status.
type ManagerStatus struct {
	Environment   string           `json:"environment"` // "production" or "testnet"
	Authenticated bool             `json:"authenticated"`
	BreakerState  string           `json:"breaker_state"` // "closed" or "open"
	CacheBackend  string           `json:"cache_backend"`
	CacheEntries  int              `json:"cache_entries"` // -1 when the backend cannot count
	RateBudget    RateBudgetStatus `json:"rate_budget"`
	Timestamp     time.Time        `json:"timestamp"`
}
