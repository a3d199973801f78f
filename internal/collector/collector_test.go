package collector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/market"
	"github.com/berserkkv/traderrs/internal/model"
)

// countingConnector records how often each group's candles are requested.
type countingConnector struct {
	market.MockConnector
	mu    sync.Mutex
	calls map[model.Group]int
}

func (c *countingConnector) GetCandles(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe, limit int) ([]model.Candle, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[model.Group]int)
	}
	c.calls[model.Group{Timeframe: timeframe, Symbol: symbol}]++
	c.mu.Unlock()
	return c.MockConnector.GetCandles(ctx, symbol, timeframe, limit)
}

func testFleet() *bot.Fleet {
	var bots []*bot.Bot
	for _, tf := range []model.Timeframe{model.Timeframe1m, model.Timeframe5m} {
		for _, sym := range []model.Symbol{model.SymbolSol, model.SymbolEth} {
			// Two strategies per group: the group must still be fetched once.
			for _, st := range []string{"EmaMacd", "EmaBounce"} {
				bots = append(bots, bot.New(bot.Config{
					Symbol: sym, Timeframe: tf, StrategyName: st,
					InitialCapital: 100, DeactivationFloor: 85, Leverage: 10,
					TakeProfitRatio: 0.8, StopLossRatio: 0.4, TrailingStopActivationPoint: 0.1,
				}))
			}
		}
	}
	return bot.NewFleet(bots)
}

func candleSeries(n int) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{Close: 100 + float64(i%7)}
	}
	return candles
}

func TestRefresh_FetchesEachGroupOnce(t *testing.T) {
	conn := &countingConnector{}
	conn.Candles = map[model.Group][]model.Candle{}
	for _, tf := range []model.Timeframe{model.Timeframe1m, model.Timeframe5m} {
		for _, sym := range []model.Symbol{model.SymbolSol, model.SymbolEth} {
			conn.Candles[model.Group{Timeframe: tf, Symbol: sym}] = candleSeries(210)
		}
	}

	c := New(conn, testFleet(), 202, 20)
	cache := c.Refresh(context.Background(), 5) // both timeframes due

	if cache.Len() != 4 {
		t.Fatalf("expected 4 groups, got %d", cache.Len())
	}
	for group, n := range conn.calls {
		if n != 1 {
			t.Errorf("group %v fetched %d times, expected once", group, n)
		}
	}

	candles, set, ok := cache.Group(model.Group{Timeframe: model.Timeframe1m, Symbol: model.SymbolSol})
	if !ok {
		t.Fatal("expected cached group")
	}
	if len(candles) != 202 {
		t.Errorf("expected candle limit applied, got %d", len(candles))
	}
	if set == nil || len(set.MACD) != len(candles) {
		t.Error("expected indicator set computed for cached group")
	}
}

func TestRefresh_OnlyDueTimeframes(t *testing.T) {
	conn := &countingConnector{}
	conn.Candles = map[model.Group][]model.Candle{
		{Timeframe: model.Timeframe1m, Symbol: model.SymbolSol}: candleSeries(50),
		{Timeframe: model.Timeframe1m, Symbol: model.SymbolEth}: candleSeries(50),
	}

	c := New(conn, testFleet(), 202, 20)
	cache := c.Refresh(context.Background(), 7) // 5m not due at minute 7

	if cache.Len() != 2 {
		t.Fatalf("expected only 1m groups at minute 7, got %d", cache.Len())
	}
	for group := range conn.calls {
		if group.Timeframe != model.Timeframe1m {
			t.Errorf("unexpected fetch for timeframe %s", group.Timeframe)
		}
	}
}

func TestRefresh_FailureIsolated(t *testing.T) {
	conn := &countingConnector{}
	conn.CandleErr = errors.New("connection refused")

	c := New(conn, testFleet(), 202, 20)
	cache := c.Refresh(context.Background(), 0)

	if cache.Len() != 0 {
		t.Errorf("expected empty cache on fetch failure, got %d groups", cache.Len())
	}
	if _, _, ok := cache.Group(model.Group{Timeframe: model.Timeframe1m, Symbol: model.SymbolSol}); ok {
		t.Error("failed group must be absent from the cache")
	}
}

func TestFetchPrices(t *testing.T) {
	conn := &countingConnector{}
	conn.Prices = map[model.Symbol]float64{model.SymbolSol: 150.5, model.SymbolBtc: 60000}

	c := New(conn, testFleet(), 202, 20)
	prices := c.FetchPrices(context.Background(), []model.Symbol{model.SymbolSol, model.SymbolBtc})

	if len(prices) != 2 || prices[model.SymbolSol] != 150.5 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestFetchPrices_FailureIsolated(t *testing.T) {
	conn := &countingConnector{}
	conn.PriceErr = errors.New("timeout")

	c := New(conn, testFleet(), 202, 20)
	prices := c.FetchPrices(context.Background(), []model.Symbol{model.SymbolSol})
	if len(prices) != 0 {
		t.Errorf("expected no prices on failure, got %v", prices)
	}
}
