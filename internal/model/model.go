package model

import "time"

// Symbol is a tradable USDT-M futures instrument, keyed by its exchange ticker.
type Symbol string

const (
	SymbolSol Symbol = "SOLUSDT"
	SymbolBtc Symbol = "BTCUSDT"
	SymbolEth Symbol = "ETHUSDT"
	SymbolBnb Symbol = "BNBUSDT"
)

// Short returns the ticker without the quote-asset suffix, e.g. "SOL".
func (s Symbol) Short() string {
	str := string(s)
	if len(str) > 4 && str[len(str)-4:] == "USDT" {
		return str[:len(str)-4]
	}
	return str
}

// Timeframe is a candle granularity. Its string form matches the exchange
// interval notation ("1m", "5m", ...).
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
)

// Minutes returns the timeframe length in minutes, or 0 for an unknown value.
func (t Timeframe) Minutes() int {
	switch t {
	case Timeframe1m:
		return 1
	case Timeframe5m:
		return 5
	case Timeframe15m:
		return 15
	case Timeframe30m:
		return 30
	case Timeframe1h:
		return 60
	}
	return 0
}

// Due reports whether the timeframe boundary falls on the given wall-clock
// minute: 1m every minute, the others when minute % N == 0.
func (t Timeframe) Due(minute int) bool {
	n := t.Minutes()
	if n == 0 {
		return false
	}
	return minute%n == 0
}

// Command is a strategy decision or the side of an open position.
type Command string

const (
	CommandLong  Command = "Long"
	CommandShort Command = "Short"
	CommandWait  Command = "Wait"
)

// Group keys the per-tick candle and indicator caches. Multiple bots with
// different strategies share one group.
type Group struct {
	Timeframe Timeframe `json:"timeframe"`
	Symbol    Symbol    `json:"symbol"`
}

// Candle is one immutable OHLCV sample.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// ClosePrices extracts the closing-price sequence from a candle series.
func ClosePrices(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Order is the immutable record of one closed trade. It is created exactly
// once per position close and owned by the persistence layer afterward.
type Order struct {
	BotID      int64     `json:"botId"`
	BotName    string    `json:"botName"`
	Symbol     Symbol    `json:"symbol"`
	Side       Command   `json:"side"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Quantity   float64   `json:"quantity"`
	Pnl        float64   `json:"pnl"`
	Roe        float64   `json:"roe"`
	Fee        float64   `json:"fee"`
	Leverage   float64   `json:"leverage"`
	CreatedAt  time.Time `json:"createdAt"`
	ClosedAt   time.Time `json:"closedAt"`
}

// BotSnapshot is a self-consistent copy of one bot's state, safe to serialize
// while the scheduling loops keep mutating the live entity.
type BotSnapshot struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Symbol       Symbol    `json:"symbol"`
	Timeframe    Timeframe `json:"timeframe"`
	StrategyName string    `json:"strategyName"`
	Capital      float64   `json:"capital"`
	IsNotActive  bool      `json:"isNotActive"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Log          string    `json:"log"`
	LastScanned  time.Time `json:"lastScanned"`

	Leverage                    float64 `json:"leverage"`
	TakeProfitRatio             float64 `json:"takeProfitRatio"`
	StopLossRatio               float64 `json:"stopLossRatio"`
	IsTrailingStopActive        bool    `json:"isTrailingStopActive"`
	TrailingStopActivationPoint float64 `json:"trailingStopActivationPoint"`

	InPos                    bool      `json:"inPos"`
	OrderType                Command   `json:"orderType"`
	OrderEntryPrice          float64   `json:"orderEntryPrice"`
	OrderStopLoss            float64   `json:"orderStopLoss"`
	OrderTakeProfit          float64   `json:"orderTakeProfit"`
	OrderQuantity            float64   `json:"orderQuantity"`
	OrderCapital             float64   `json:"orderCapital"`
	OrderCapitalWithLeverage float64   `json:"orderCapitalWithLeverage"`
	OrderFee                 float64   `json:"orderFee"`
	Pnl                      float64   `json:"pnl"`
	Roe                      float64   `json:"roe"`
	OrderCreatedAt           time.Time `json:"orderCreatedAt"`
	OrderScannedAt           time.Time `json:"orderScannedAt"`
}

// BotState is the persisted end-of-day record used for rehydration and
// per-name statistics.
type BotState struct {
	Name      string    `json:"name"`
	Capital   float64   `json:"capital"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	CreatedAt time.Time `json:"createdAt"`
}

// BotStatistic aggregates the persisted daily records of one bot name.
type BotStatistic struct {
	BotName  string     `json:"botName"`
	WinDays  int        `json:"winDays"`
	LoseDays int        `json:"loseDays"`
	Capital  float64    `json:"capital"`
	Results  []BotState `json:"results"`
}
