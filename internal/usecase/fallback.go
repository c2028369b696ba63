package usecase

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"DashPull/internal/domain/models"
	domrepo "DashPull/internal/domain/repository"
)

// Demo values served when neither live nor cache can answer. Schema stability
// takes priority over accuracy: every fallback satisfies the same shape as a
// live result.

var fallbackPrices = map[string]float64{
	"BTCUSDT": 45000,
	"ETHUSDT": 2800,
	"ADAUSDT": 0.45,
	"DOTUSDT": 6.5,
	"SOLUSDT": 95,
}

func fallbackPrice(symbol string) float64 {
	if p, ok := fallbackPrices[symbol]; ok {
		return p
	}
	return 1000
}

// fallbackBalance is zero-valued on purpose: a placeholder balance must never
// look like real money on a dashboard.
func fallbackBalance() models.AccountBalance {
	return models.AccountBalance{
		Balances: map[string]models.CoinBalance{
			"USDT": {Coin: "USDT"},
		},
	}
}

func fallbackPositions() []models.Position {
	return []models.Position{}
}

func fallbackTicker(symbol string) models.Ticker {
	p := fallbackPrice(symbol)
	return models.Ticker{
		Symbol:    symbol,
		LastPrice: p,
		Bid1Price: p * 0.999,
		Ask1Price: p * 1.001,
		High24h:   p * 1.02,
		Low24h:    p * 0.98,
		Volume24h: 1000000,
	}
}

// fallbackCandles synthesizes a random-walk OHLCV series. The generator is
// seeded per (symbol, interval) so repeated fallback renders within the same
// tick show a stable chart instead of flickering noise.
func fallbackCandles(symbol, interval string, limit int) []models.Candle {
	h := fnv.New64a()
	h.Write([]byte(symbol + ":" + interval))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	step := domrepo.IntervalDuration(interval)
	end := time.Now().Truncate(step)
	price := fallbackPrice(symbol)

	candles := make([]models.Candle, limit)
	for i := 0; i < limit; i++ {
		ret := rng.NormFloat64() * 0.02
		next := price * math.Exp(ret)
		high := math.Max(price, next) * (1 + rng.Float64()*0.01)
		low := math.Min(price, next) * (1 - rng.Float64()*0.01)
		candles[i] = models.Candle{
			Start:  end.Add(-time.Duration(limit-1-i) * step),
			Open:   price,
			High:   high,
			Low:    low,
			Close:  next,
			Volume: 100 + rng.Float64()*900,
		}
		price = next
	}
	return candles
}
