package calculator

import "github.com/berserkkv/traderrs/internal/model"

// Futures fee rates; taker is charged at open, maker at close.
const (
	takerFeeRate = 0.0004
	makerFeeRate = 0.0002
)

// StopLoss returns the stop-loss price level for the given side.
func StopLoss(price, pct float64, side model.Command) float64 {
	switch side {
	case model.CommandLong:
		return price * (1 - pct/100)
	case model.CommandShort:
		return price * (1 + pct/100)
	}
	return 0
}

// TakeProfit returns the take-profit price level for the given side.
func TakeProfit(price, pct float64, side model.Command) float64 {
	switch side {
	case model.CommandLong:
		return price * (1 + pct/100)
	case model.CommandShort:
		return price * (1 - pct/100)
	}
	return 0
}

// TakerFee is the fee charged when a position is opened.
func TakerFee(capital float64) float64 {
	return capital * takerFeeRate
}

// MakerFee is the fee charged when a position is closed.
func MakerFee(capital float64) float64 {
	return capital * makerFeeRate
}

// BuyQuantity converts the leveraged capital into an asset quantity at the
// given price, or 0 if the price is 0.
func BuyQuantity(price, capitalWithLeverage float64) float64 {
	if price == 0 {
		return 0
	}
	return capitalWithLeverage / price
}

// Pnl computes the unrealized profit of a position. The entry price is
// recoverable as capitalWithLeverage/quantity, so for a Long this equals
// (current - entry) * quantity and for a Short the mirror.
func Pnl(currentPrice, capitalWithLeverage, quantity float64, side model.Command) float64 {
	if quantity == 0 {
		return 0
	}
	switch side {
	case model.CommandLong:
		return (currentPrice - capitalWithLeverage/quantity) * quantity
	case model.CommandShort:
		return (capitalWithLeverage/quantity - currentPrice) * quantity
	}
	return 0
}

// Roe is the leveraged return on equity in percent, or 0 if the entry price
// is 0.
func Roe(entryPrice, currentPrice, leverage float64, side model.Command) float64 {
	if entryPrice == 0 {
		return 0
	}
	switch side {
	case model.CommandLong:
		return ((currentPrice - entryPrice) / entryPrice) * leverage * 100
	case model.CommandShort:
		return ((entryPrice - currentPrice) / entryPrice) * leverage * 100
	}
	return 0
}

// ShouldClose reports whether the current price has crossed either the
// stop-loss or the take-profit level. An unknown side always closes.
func ShouldClose(price, stopLoss, takeProfit float64, side model.Command) bool {
	switch side {
	case model.CommandLong:
		return price <= stopLoss || price >= takeProfit
	case model.CommandShort:
		return price >= stopLoss || price <= takeProfit
	}
	return true
}
