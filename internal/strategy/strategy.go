// Package strategy maps cached candles and indicators to trading commands.
// Strategies form a closed enumeration: configuration selects one by name,
// unknown names fall back to a Wait-only variant instead of erroring.
package strategy

import (
	"fmt"
	"strings"

	"github.com/berserkkv/traderrs/internal/indicator"
	"github.com/berserkkv/traderrs/internal/model"
)

// Kind identifies one of the bundled strategies.
type Kind int

const (
	KindUnknown Kind = iota
	KindEmaMacd
	KindEmaMacd2
	KindEmaBounce
)

// FromName maps a configured strategy name to its Kind, case-insensitively.
// Unknown names map to KindUnknown, which always waits.
func FromName(name string) Kind {
	switch strings.ToLower(name) {
	case "emamacd":
		return KindEmaMacd
	case "emamacd2":
		return KindEmaMacd2
	case "emabounce":
		return KindEmaBounce
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindEmaMacd:
		return "EmaMacd"
	case KindEmaMacd2:
		return "EmaMacd2"
	case KindEmaBounce:
		return "EmaBounce"
	}
	return "Unknown"
}

// Evaluate runs the strategy over one group's candles and indicator set and
// returns a command plus a diagnostic line. It never panics on short or
// missing data; any gap yields Wait.
func (k Kind) Evaluate(candles []model.Candle, set *indicator.Set) (model.Command, string) {
	if len(candles) < 2 {
		return model.CommandWait, "not enough candles"
	}
	if set == nil {
		return model.CommandWait, "no indicators"
	}
	switch k {
	case KindEmaMacd:
		return evalEmaMacd(candles, set)
	case KindEmaMacd2:
		return evalEmaMacd2(candles, set)
	case KindEmaBounce:
		return evalEmaBounce(candles, set)
	}
	return model.CommandWait, "unknown strategy"
}

// lastReading returns the newest value of an indicator series. A zero value
// means the series has not warmed up yet (EMASeries zero-fills its prefix),
// which callers treat the same as an absent series.
func lastReading(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	v := series[len(series)-1]
	return v, v != 0
}

// evalEmaMacd goes long when the MACD line crosses from negative to positive
// with a positive histogram and the price above EMA200; mirrored for short.
func evalEmaMacd(candles []model.Candle, set *indicator.Set) (model.Command, string) {
	if len(set.MACD) < 2 {
		return model.CommandWait, "no macd"
	}
	ema200, ok := lastReading(set.EMA200)
	if !ok {
		return model.CommandWait, "no ema"
	}

	n := len(set.MACD)
	macd, macdPrev := set.MACD[n-1], set.MACD[n-2]
	signal := set.Signal[n-1]
	hist := set.Histogram[n-1]
	price := candles[len(candles)-1].Close

	info := fmt.Sprintf("p:%.2f, mc:%.2f, sg:%.2f, em:%.2f", price, macd, signal, ema200)

	if macdPrev < 0 && macd > 0 && hist > 0 && price > ema200 {
		return model.CommandLong, info
	}
	if macdPrev > 0 && macd < 0 && hist < 0 && price < ema200 {
		return model.CommandShort, info
	}
	return model.CommandWait, info
}

// evalEmaMacd2 goes long when the MACD line crosses above its signal line
// with the price above EMA200; mirrored for short.
func evalEmaMacd2(candles []model.Candle, set *indicator.Set) (model.Command, string) {
	if len(set.MACD) < 2 {
		return model.CommandWait, "no macd"
	}
	ema200, ok := lastReading(set.EMA200)
	if !ok {
		return model.CommandWait, "no ema"
	}

	n := len(set.MACD)
	macd, macdPrev := set.MACD[n-1], set.MACD[n-2]
	signal, signalPrev := set.Signal[n-1], set.Signal[n-2]
	price := candles[len(candles)-1].Close

	info := fmt.Sprintf("p:%.2f, mc:%.2f, sg:%.2f, em:%.2f", price, macd, signal, ema200)

	if macdPrev < signalPrev && macd > signal && price > ema200 {
		return model.CommandLong, info
	}
	if macdPrev > signalPrev && macd < signal && price < ema200 {
		return model.CommandShort, info
	}
	return model.CommandWait, info
}

// evalEmaBounce goes long when EMA50 is above EMA200 and the price crosses
// EMA50 from below; mirrored for short.
func evalEmaBounce(candles []model.Candle, set *indicator.Set) (model.Command, string) {
	ema200, ok := lastReading(set.EMA200)
	if !ok {
		return model.CommandWait, "no ema 200"
	}
	ema50, ok := lastReading(set.EMA50)
	if !ok {
		return model.CommandWait, "no ema 50"
	}

	n := len(candles)
	price := candles[n-1].Close
	prevPrice := candles[n-2].Close

	info := fmt.Sprintf("ema50: %.2f, ema200: %.2f", ema50, ema200)

	if ema50 > ema200 && prevPrice < ema50 && price > ema50 {
		return model.CommandLong, info
	}
	if ema50 < ema200 && prevPrice > ema50 && price < ema50 {
		return model.CommandShort, info
	}
	return model.CommandWait, info
}
