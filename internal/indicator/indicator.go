package indicator

import (
	"errors"
	"math"
)

// MACD periods are fixed; every strategy shares the same 12/25/9 lines.
const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 25
	macdSignalPeriod = 9
)

// ErrNotEnoughData is returned when the price sequence is shorter than the
// requested period.
var ErrNotEnoughData = errors.New("not enough data")

// EMA computes the exponential moving average of the whole price sequence,
// seeded with the simple average of the first period values.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	k := 2.0 / float64(period+1)
	ema := 0.0
	for _, p := range prices[:period] {
		ema += p
	}
	ema /= float64(period)
	for _, p := range prices[period:] {
		ema = (p-ema)*k + ema
	}
	return ema, nil
}

// EMASeries returns one EMA value per input index. Indices below period-1
// are 0, not a real reading; callers must skip the zero-filled prefix.
func EMASeries(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	if len(prices) < period || period <= 0 {
		return result
	}
	k := 2.0 / float64(period+1)
	seed := 0.0
	for _, p := range prices[:period] {
		seed += p
	}
	result[period-1] = seed / float64(period)
	for i := period; i < len(prices); i++ {
		result[i] = (prices[i]-result[i-1])*k + result[i-1]
	}
	return result
}

// MACDSeries computes the MACD line (EMA12 - EMA25), its EMA9 signal line and
// the histogram for every input index.
func MACDSeries(prices []float64) (macd, signal, histogram []float64) {
	fast := EMASeries(prices, macdFastPeriod)
	slow := EMASeries(prices, macdSlowPeriod)
	macd = make([]float64, len(prices))
	for i := range prices {
		macd[i] = fast[i] - slow[i]
	}
	signal = EMASeries(macd, macdSignalPeriod)
	histogram = make([]float64, len(prices))
	for i := range prices {
		histogram[i] = macd[i] - signal[i]
	}
	return macd, signal, histogram
}

// MACD returns the latest MACD line, signal and histogram values, or zeros
// for an empty sequence.
func MACD(prices []float64) (macd, signal, histogram float64) {
	m, s, h := MACDSeries(prices)
	if len(m) == 0 {
		return 0, 0, 0
	}
	n := len(m) - 1
	return m[n], s[n], h[n]
}

// BollingerPercentB returns where the last price sits between the Bollinger
// bands of the trailing window, bands at +/-2 standard deviations.
func BollingerPercentB(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	window := prices[len(prices)-period:]
	sma := 0.0
	for _, p := range window {
		sma += p
	}
	sma /= float64(period)
	variance := 0.0
	for _, p := range window {
		d := p - sma
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))
	if stddev == 0 {
		// A flat window has no band width to place the price in.
		return 0, errors.New("zero-width bollinger band")
	}
	upper := sma + 2*stddev
	lower := sma - 2*stddev
	return (window[period-1] - lower) / (upper - lower), nil
}
