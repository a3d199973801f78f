package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/collector"
	"github.com/berserkkv/traderrs/internal/model"
	"github.com/berserkkv/traderrs/internal/repository"
)

// maxOrderBacklog caps the closed orders held for a retried persistence
// write; beyond it the oldest are dropped with a log line.
const maxOrderBacklog = 1024

// PositionMonitor polls live prices for every symbol with an open position
// and closes or updates each position. Closed orders flow through a buffered
// channel to a dedicated writer goroutine, so a slow or failing repository
// never delays the next polling iteration.
type PositionMonitor struct {
	fleet     *bot.Fleet
	collector *collector.Collector
	repo      repository.Repository

	interval time.Duration
	orderCh  chan []model.Order
	backlog  []model.Order // owned by the writer goroutine
}

// NewPositionMonitor creates the position monitor with the given polling
// interval.
func NewPositionMonitor(fleet *bot.Fleet, col *collector.Collector, repo repository.Repository,
	interval time.Duration) *PositionMonitor {
	return &PositionMonitor{
		fleet:     fleet,
		collector: col,
		repo:      repo,
		interval:  interval,
		orderCh:   make(chan []model.Order, 16),
	}
}

// Run loops until the context is cancelled.
func (m *PositionMonitor) Run(ctx context.Context) {
	log.Printf("[INFO] position monitor started: interval=%s", m.interval)
	go m.writeLoop(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] position monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx, time.Now())
		}
	}
}

func (m *PositionMonitor) tick(ctx context.Context, now time.Time) {
	symbols := m.fleet.OpenSymbols()
	if len(symbols) == 0 {
		return
	}
	prices := m.collector.FetchPrices(ctx, symbols)

	var closed []model.Order
	for _, b := range m.fleet.Bots() {
		if !b.InPosition() {
			continue
		}
		price, ok := prices[b.Symbol]
		if !ok {
			b.RecordLog("price missing")
			log.Printf("[WARN] price missing: bot=%s symbol=%s", b.Name, b.Symbol)
			continue
		}
		if order, didClose := b.Refresh(price, now); didClose {
			closed = append(closed, order)
		}
	}

	if len(closed) == 0 {
		return
	}
	select {
	case m.orderCh <- closed:
	default:
		// The writer is far behind; fold the batch into its next receive
		// rather than blocking the polling cadence. The send gives up on
		// shutdown, where the writer's drain takes over.
		go func() {
			select {
			case m.orderCh <- closed:
			case <-ctx.Done():
			}
		}()
	}
}

// writeLoop persists closed-order batches. A failed write keeps the batch in
// a bounded backlog that is retried in front of the next batch and on a slow
// timer; in-memory bot state stays authoritative either way.
func (m *PositionMonitor) writeLoop(ctx context.Context) {
	retry := time.NewTicker(30 * time.Second)
	defer retry.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drainAndFlush()
			return
		case batch := <-m.orderCh:
			m.persist(batch)
		case <-retry.C:
			if len(m.backlog) > 0 {
				m.persist(nil)
			}
		}
	}
}

// drainAndFlush empties batches still queued in the channel into the backlog
// and attempts one final write.
func (m *PositionMonitor) drainAndFlush() {
	for {
		select {
		case batch := <-m.orderCh:
			m.backlog = append(m.backlog, batch...)
		default:
			if len(m.backlog) > 0 {
				m.persist(nil)
			}
			return
		}
	}
}

func (m *PositionMonitor) persist(batch []model.Order) {
	m.backlog = append(m.backlog, batch...)
	if len(m.backlog) == 0 {
		return
	}
	if err := m.repo.AppendOrders(m.backlog); err != nil {
		log.Printf("[ERROR] persist orders: %v (%d queued for retry)", err, len(m.backlog))
		if over := len(m.backlog) - maxOrderBacklog; over > 0 {
			m.backlog = m.backlog[over:]
			log.Printf("[ERROR] order backlog over limit, dropped %d oldest", over)
		}
		return
	}
	m.backlog = nil
}
