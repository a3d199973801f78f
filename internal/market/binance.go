package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"github.com/berserkkv/traderrs/internal/model"
)

const requestTimeout = 10 * time.Second

// BinanceConnector fetches USDT-M futures prices and klines. Positions are
// bookkeeping entries, so no signed endpoints are used; the keys may be
// empty.
type BinanceConnector struct {
	client *futures.Client
}

// NewBinanceConnector creates a connector for the Binance futures API.
func NewBinanceConnector(apiKey, secretKey string) *BinanceConnector {
	return &BinanceConnector{client: binance.NewFuturesClient(apiKey, secretKey)}
}

func (b *BinanceConnector) Name() string { return "binance-futures" }

// GetPrice returns the latest ticker price for the symbol.
func (b *BinanceConnector) GetPrice(ctx context.Context, symbol model.Symbol) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prices, err := b.client.NewListPricesService().Symbol(string(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	// The API returns a slice even for a single symbol.
	for _, p := range prices {
		if p.Symbol != string(symbol) {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %s: %w", symbol, err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("symbol %s not found in price list", symbol)
}

// GetCandles returns up to limit klines for the (symbol, timeframe) pair,
// oldest first.
func (b *BinanceConnector) GetCandles(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe, limit int) ([]model.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	klines, err := b.client.NewKlinesService().
		Symbol(string(symbol)).
		Interval(string(timeframe)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s %s: %w", symbol, timeframe, err)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", symbol, err)
		}
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		candles = append(candles, model.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return candles, nil
}
