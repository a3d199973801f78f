// Package scheduler drives the two loops that share the bot fleet: the
// wall-clock-aligned entry scheduler and the tight-cadence position monitor.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/collector"
	"github.com/berserkkv/traderrs/internal/market"
	"github.com/berserkkv/traderrs/internal/model"
	"github.com/berserkkv/traderrs/internal/strategy"
)

// EntryScheduler wakes on every minute boundary, refreshes market data for
// the due timeframes and evaluates each eligible bot's strategy.
type EntryScheduler struct {
	fleet     *bot.Fleet
	collector *collector.Collector
	connector market.Connector

	interval    time.Duration
	settleDelay time.Duration
}

// NewEntryScheduler creates the entry scheduler. interval is the smallest
// configured timeframe (60s); settleDelay gives the exchange time to finalize
// the just-closed candle before it is fetched.
func NewEntryScheduler(fleet *bot.Fleet, col *collector.Collector, connector market.Connector,
	interval, settleDelay time.Duration) *EntryScheduler {
	return &EntryScheduler{
		fleet:       fleet,
		collector:   col,
		connector:   connector,
		interval:    interval,
		settleDelay: settleDelay,
	}
}

// Run loops until the context is cancelled.
func (s *EntryScheduler) Run(ctx context.Context) {
	log.Printf("[INFO] entry scheduler started: interval=%s settle=%s", s.interval, s.settleDelay)
	for {
		if !s.sleepUntilNextTick(ctx) {
			log.Println("[INFO] entry scheduler stopped")
			return
		}
		s.scan(ctx, time.Now())
	}
}

// ScanNow runs a single scan immediately, outside the tick alignment.
func (s *EntryScheduler) ScanNow(ctx context.Context) {
	s.scan(ctx, time.Now())
}

// sleepUntilNextTick blocks until just after the next wall-clock boundary
// aligned to the interval. Returns false when the context was cancelled.
func (s *EntryScheduler) sleepUntilNextTick(ctx context.Context) bool {
	now := time.Now()
	wait := s.interval - time.Duration(now.UnixNano())%s.interval

	timer := time.NewTimer(wait + s.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *EntryScheduler) scan(ctx context.Context, now time.Time) {
	minute := now.Minute()
	cache := s.collector.Refresh(ctx, minute)

	for _, b := range s.fleet.Bots() {
		if !b.ShouldScan(minute, now) {
			continue
		}

		candles, set, ok := cache.Group(b.Group())
		if !ok {
			b.RecordLog("no market data")
			log.Printf("[WARN] no market data: bot=%s group=%s%s", b.Name, b.Timeframe, b.Symbol)
			continue
		}

		command, info := strategy.FromName(b.StrategyName).Evaluate(candles, set)
		switch command {
		case model.CommandLong, model.CommandShort:
			price, err := s.connector.GetPrice(ctx, b.Symbol)
			if err != nil {
				b.RecordLog("entry price fetch failed")
				log.Printf("[WARN] entry price fetch failed: bot=%s err=%v", b.Name, err)
				continue
			}
			// A failed open reflects a stale eligibility check; log and move on.
			if err := b.OpenPosition(command, price, now); err != nil {
				log.Printf("[WARN] open position rejected: bot=%s err=%v", b.Name, err)
			}
		default:
			b.RecordLog(info)
		}
	}
}
