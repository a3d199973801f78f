package bot

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berserkkv/traderrs/internal/calculator"
	"github.com/berserkkv/traderrs/internal/model"
)

// Domain-rule violations. They are expected occasionally under concurrent
// access (a stale eligibility check) and are logged by the caller, never
// fatal.
var (
	ErrNotActive           = errors.New("bot is not active")
	ErrAlreadyInPosition   = errors.New("bot is already in position")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrNoOpenPosition      = errors.New("no open position to close")
)

var botIDCounter atomic.Int64

// Config is the immutable per-bot configuration.
type Config struct {
	Symbol                      model.Symbol
	Timeframe                   model.Timeframe
	StrategyName                string
	InitialCapital              float64
	DeactivationFloor           float64
	Leverage                    float64
	TakeProfitRatio             float64
	StopLossRatio               float64
	TrailingStopActivationPoint float64
}

// Bot is one trading instance bound to a (timeframe, symbol, strategy)
// triple. Identity and configuration are immutable after New; the runtime
// state is guarded by the bot's own mutex so the entry scheduler, the
// position monitor and the status API never observe a partial write. Locking
// is per bot: the two scheduling loops iterate the whole fleet every cycle
// and must not stall each other behind a collection-wide lock.
type Bot struct {
	ID           int64
	Name         string
	Symbol       model.Symbol
	Timeframe    model.Timeframe
	StrategyName string

	Leverage                    float64
	TakeProfitRatio             float64
	StopLossRatio               float64
	TrailingStopActivationPoint float64

	initialCapital    float64
	deactivationFloor float64

	mu sync.Mutex

	capital              float64
	isNotActive          bool
	isTrailingStopActive bool
	wins                 int
	losses               int
	logMsg               string
	lastScanned          time.Time

	inPos                    bool
	orderType                model.Command
	orderEntryPrice          float64
	orderStopLoss            float64
	orderTakeProfit          float64
	orderQuantity            float64
	orderCapital             float64
	orderCapitalWithLeverage float64
	orderFee                 float64
	pnl                      float64
	roe                      float64
	orderCreatedAt           time.Time
	orderScannedAt           time.Time
}

// New constructs an idle bot. The name is derived from the strategy,
// timeframe and symbol and stays stable across restarts, so it doubles as
// the persistence key.
func New(cfg Config) *Bot {
	now := time.Now()
	return &Bot{
		ID:           botIDCounter.Add(1),
		Name:         fmt.Sprintf("%s_%s_%s", cfg.StrategyName, cfg.Timeframe, cfg.Symbol.Short()),
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		StrategyName: cfg.StrategyName,

		Leverage:                    cfg.Leverage,
		TakeProfitRatio:             cfg.TakeProfitRatio,
		StopLossRatio:               cfg.StopLossRatio,
		TrailingStopActivationPoint: cfg.TrailingStopActivationPoint,

		initialCapital:    cfg.InitialCapital,
		deactivationFloor: cfg.DeactivationFloor,

		capital:              cfg.InitialCapital,
		isTrailingStopActive: true,
		lastScanned:          now,
		orderType:            model.CommandWait,
		orderCreatedAt:       now,
		orderScannedAt:       now,
	}
}

// Group returns the cache key this bot shares with every other bot on the
// same (timeframe, symbol) pair.
func (b *Bot) Group() model.Group {
	return model.Group{Timeframe: b.Timeframe, Symbol: b.Symbol}
}

// ShouldScan reports whether the bot is eligible for a strategy evaluation
// on the given wall-clock minute and, if so, stamps the scan time.
func (b *Bot) ShouldScan(minute int, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isNotActive || b.capital <= b.deactivationFloor || b.inPos || !b.Timeframe.Due(minute) {
		return false
	}
	b.lastScanned = now
	return true
}

// InPosition reports whether the bot currently holds an open position.
func (b *Bot) InPosition() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inPos
}

// RecordLog overwrites the bot's diagnostic line. It is display-only and
// never used for control decisions.
func (b *Bot) RecordLog(msg string) {
	b.mu.Lock()
	b.logMsg = msg
	b.mu.Unlock()
}

func (b *Bot) canOpenLocked() error {
	if b.isNotActive {
		return ErrNotActive
	}
	if b.inPos {
		return ErrAlreadyInPosition
	}
	if b.capital <= b.deactivationFloor {
		return ErrInsufficientCapital
	}
	return nil
}

// OpenPosition enters a leveraged position at the given price: the full
// capital is debited into the order, the taker fee is deducted, and the
// stop-loss/take-profit levels are fixed from the entry price.
func (b *Bot) OpenPosition(side model.Command, price float64, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.canOpenLocked(); err != nil {
		return err
	}

	b.orderType = side
	b.orderStopLoss = calculator.StopLoss(price, b.StopLossRatio, side)
	b.orderTakeProfit = calculator.TakeProfit(price, b.TakeProfitRatio, side)

	capital := b.capital
	b.capital = 0

	fee := calculator.TakerFee(capital)
	capital -= fee

	b.orderCapital = capital
	b.orderCapitalWithLeverage = b.Leverage * capital
	b.orderQuantity = calculator.BuyQuantity(price, b.orderCapitalWithLeverage)
	b.orderEntryPrice = price
	b.orderFee = fee
	b.inPos = true
	b.orderCreatedAt = now
	b.orderScannedAt = now

	log.Printf("[INFO] position opened: name=%s side=%s capital=%.2f entry=%.2f sl=%.2f tp=%.2f qty=%.4f",
		b.Name, side, b.orderCapital, price, b.orderStopLoss, b.orderTakeProfit, b.orderQuantity)
	return nil
}

// ClosePosition exits the open position at the given price and returns the
// immutable order record. The final pnl/roe are computed before the maker
// fee reduces the capitals, so a flat round trip costs exactly the two fees.
func (b *Bot) ClosePosition(price float64, now time.Time) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closePositionLocked(price, now)
}

func (b *Bot) closePositionLocked(price float64, now time.Time) (model.Order, error) {
	if b.orderType == model.CommandWait {
		return model.Order{}, ErrNoOpenPosition
	}

	pnl := calculator.Pnl(price, b.orderCapitalWithLeverage, b.orderQuantity, b.orderType)
	roe := calculator.Roe(b.orderEntryPrice, price, b.Leverage, b.orderType)

	fee := calculator.MakerFee(b.orderCapital)
	b.orderCapitalWithLeverage -= fee
	b.orderCapital -= fee
	b.orderFee += fee

	if pnl > 0 {
		b.wins++
	} else {
		b.losses++
	}

	b.capital += b.orderCapital + pnl

	order := model.Order{
		BotID:      b.ID,
		BotName:    b.Name,
		Symbol:     b.Symbol,
		Side:       b.orderType,
		EntryPrice: b.orderEntryPrice,
		ExitPrice:  price,
		Quantity:   b.orderQuantity,
		Pnl:        pnl,
		Roe:        roe,
		Fee:        b.orderFee,
		Leverage:   b.Leverage,
		CreatedAt:  b.orderCreatedAt,
		ClosedAt:   now,
	}

	b.resetOrderLocked(now)

	if b.capital <= b.deactivationFloor {
		b.isNotActive = true
		log.Printf("[WARN] bot deactivated: name=%s capital=%.2f", b.Name, b.capital)
	}

	log.Printf("[INFO] position closed: name=%s side=%s exit=%.2f pnl=%.2f roe=%.2f capital=%.2f",
		b.Name, order.Side, price, pnl, roe, b.capital)
	return order, nil
}

func (b *Bot) resetOrderLocked(now time.Time) {
	b.inPos = false
	b.orderType = model.CommandWait
	b.orderEntryPrice = 0
	b.orderStopLoss = 0
	b.orderTakeProfit = 0
	b.orderQuantity = 0
	b.orderCapital = 0
	b.orderCapitalWithLeverage = 0
	b.orderFee = 0
	b.pnl = 0
	b.roe = 0
	b.orderCreatedAt = now
	b.orderScannedAt = now
}

// ShiftStopLoss trails the stop-loss toward the current profit. The stop only
// ever tightens: it moves up for a Long and down for a Short, never back.
func (b *Bot) ShiftStopLoss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shiftStopLossLocked()
}

func (b *Bot) shiftStopLossLocked() {
	if !b.inPos || !b.isTrailingStopActive {
		return
	}
	realRoe := b.roe / b.Leverage
	if realRoe <= b.TrailingStopActivationPoint {
		return
	}
	shift := (realRoe / 100) / 2
	switch b.orderType {
	case model.CommandLong:
		if candidate := b.orderEntryPrice * (1 + shift); candidate > b.orderStopLoss {
			b.orderStopLoss = candidate
		}
	case model.CommandShort:
		if candidate := b.orderEntryPrice * (1 - shift); candidate < b.orderStopLoss {
			b.orderStopLoss = candidate
		}
	}
}

// Refresh applies the latest price to an open position under a single lock
// acquisition: the position is closed when the stop-loss or take-profit is
// crossed, otherwise the running pnl/roe are updated and the stop trailed.
// The returned flag is true when a position was closed.
func (b *Bot) Refresh(price float64, now time.Time) (model.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inPos {
		return model.Order{}, false
	}
	if calculator.ShouldClose(price, b.orderStopLoss, b.orderTakeProfit, b.orderType) {
		order, err := b.closePositionLocked(price, now)
		if err != nil {
			return model.Order{}, false
		}
		return order, true
	}

	b.pnl = calculator.Pnl(price, b.orderCapitalWithLeverage, b.orderQuantity, b.orderType)
	b.roe = calculator.Roe(b.orderEntryPrice, price, b.Leverage, b.orderType)
	b.shiftStopLossLocked()
	b.lastScanned = now
	b.orderScannedAt = now
	return model.Order{}, false
}

// Reset restores the bot to its starting state: full capital, reactivated,
// counters and order fields zeroed. Used by the daily rollover and the
// administrative reset endpoint.
func (b *Bot) Reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.capital = b.initialCapital
	b.isNotActive = false
	b.wins = 0
	b.losses = 0
	b.logMsg = ""
	b.resetOrderLocked(now)
}

// Rehydrate applies a persisted end-of-day record to a freshly constructed
// bot. A rehydrated capital at or below the floor keeps the bot deactivated.
func (b *Bot) Rehydrate(state model.BotState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.capital = state.Capital
	b.wins = state.Wins
	b.losses = state.Losses
	b.isNotActive = state.Capital <= b.deactivationFloor
}

// Snapshot returns a self-consistent copy of the bot's state.
func (b *Bot) Snapshot() model.BotSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return model.BotSnapshot{
		ID:           b.ID,
		Name:         b.Name,
		Symbol:       b.Symbol,
		Timeframe:    b.Timeframe,
		StrategyName: b.StrategyName,
		Capital:      b.capital,
		IsNotActive:  b.isNotActive,
		Wins:         b.wins,
		Losses:       b.losses,
		Log:          b.logMsg,
		LastScanned:  b.lastScanned,

		Leverage:                    b.Leverage,
		TakeProfitRatio:             b.TakeProfitRatio,
		StopLossRatio:               b.StopLossRatio,
		IsTrailingStopActive:        b.isTrailingStopActive,
		TrailingStopActivationPoint: b.TrailingStopActivationPoint,

		InPos:                    b.inPos,
		OrderType:                b.orderType,
		OrderEntryPrice:          b.orderEntryPrice,
		OrderStopLoss:            b.orderStopLoss,
		OrderTakeProfit:          b.orderTakeProfit,
		OrderQuantity:            b.orderQuantity,
		OrderCapital:             b.orderCapital,
		OrderCapitalWithLeverage: b.orderCapitalWithLeverage,
		OrderFee:                 b.orderFee,
		Pnl:                      b.pnl,
		Roe:                      b.roe,
		OrderCreatedAt:           b.orderCreatedAt,
		OrderScannedAt:           b.orderScannedAt,
	}
}
