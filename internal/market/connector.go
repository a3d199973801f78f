package market

import (
	"context"

	"github.com/berserkkv/traderrs/internal/model"
)

// Connector is the market-data collaborator. Implementations must be safe
// for concurrent use; errors are transient and recovered by retrying on the
// next cycle.
type Connector interface {
	GetPrice(ctx context.Context, symbol model.Symbol) (float64, error)
	GetCandles(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe, limit int) ([]model.Candle, error)
	Name() string
}

// MockConnector returns controllable fixed data for development and testing.
type MockConnector struct {
	Prices  map[model.Symbol]float64
	Candles map[model.Group][]model.Candle

	PriceErr  error
	CandleErr error
}

func (m *MockConnector) Name() string { return "mock" }

func (m *MockConnector) GetPrice(_ context.Context, symbol model.Symbol) (float64, error) {
	if m.PriceErr != nil {
		return 0, m.PriceErr
	}
	return m.Prices[symbol], nil
}

func (m *MockConnector) GetCandles(_ context.Context, symbol model.Symbol, timeframe model.Timeframe, limit int) ([]model.Candle, error) {
	if m.CandleErr != nil {
		return nil, m.CandleErr
	}
	candles := m.Candles[model.Group{Timeframe: timeframe, Symbol: symbol}]
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
