// Package collector orchestrates the per-tick market-data refresh: it
// fetches candles for every (timeframe, symbol) group due on the current
// minute with bounded concurrency and computes each group's indicator set
// exactly once, no matter how many bots share the group.
package collector

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/indicator"
	"github.com/berserkkv/traderrs/internal/market"
	"github.com/berserkkv/traderrs/internal/model"
)

// TickCache holds one tick's candles and derived indicators. It is owned by
// the entry scheduler for the duration of a single tick and discarded
// afterward; it is never shared with the position monitor.
type TickCache struct {
	candles    map[model.Group][]model.Candle
	indicators map[model.Group]*indicator.Set
}

// Group returns the cached candles and indicator set for a group. The third
// result is false when the group's fetch failed or produced no data this
// tick.
func (t *TickCache) Group(g model.Group) ([]model.Candle, *indicator.Set, bool) {
	candles, ok := t.candles[g]
	if !ok || len(candles) == 0 {
		return nil, nil, false
	}
	return candles, t.indicators[g], true
}

// Len returns the number of groups present in the cache.
func (t *TickCache) Len() int { return len(t.candles) }

// Collector fetches market data for the bot fleet.
type Collector struct {
	connector   market.Connector
	fleet       *bot.Fleet
	candleLimit int
	maxInFlight int
}

// New creates a Collector. maxInFlight bounds the number of concurrent
// outbound requests.
func New(connector market.Connector, fleet *bot.Fleet, candleLimit, maxInFlight int) *Collector {
	return &Collector{
		connector:   connector,
		fleet:       fleet,
		candleLimit: candleLimit,
		maxInFlight: maxInFlight,
	}
}

// Refresh fetches candles for every group due on the given minute and
// computes the indicator sets. A failed fetch is logged and leaves its group
// absent from the cache; it never aborts the batch.
func (c *Collector) Refresh(ctx context.Context, minute int) *TickCache {
	groups := c.fleet.DueGroups(minute)

	cache := &TickCache{
		candles:    make(map[model.Group][]model.Candle, len(groups)),
		indicators: make(map[model.Group]*indicator.Set, len(groups)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxInFlight)

	for _, group := range groups {
		g.Go(func() error {
			candles, err := c.connector.GetCandles(gctx, group.Symbol, group.Timeframe, c.candleLimit)
			if err != nil {
				log.Printf("[WARN] fetch candles failed: group=%s%s err=%v", group.Timeframe, group.Symbol, err)
				return nil
			}
			mu.Lock()
			cache.candles[group] = candles
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// One indicator set per group, shared by every bot in the group.
	for group, candles := range cache.candles {
		cache.indicators[group] = indicator.Compute(model.ClosePrices(candles))
	}
	return cache
}

// FetchPrices returns the current price for each symbol, fetched with the
// same concurrency bound. Missing symbols are logged and absent from the
// result.
func (c *Collector) FetchPrices(ctx context.Context, symbols []model.Symbol) map[model.Symbol]float64 {
	prices := make(map[model.Symbol]float64, len(symbols))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxInFlight)

	for _, symbol := range symbols {
		g.Go(func() error {
			price, err := c.connector.GetPrice(gctx, symbol)
			if err != nil {
				log.Printf("[WARN] fetch price failed: symbol=%s err=%v", symbol, err)
				return nil
			}
			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return prices
}
