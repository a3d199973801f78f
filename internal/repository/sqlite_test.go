package repository

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berserkkv/traderrs/internal/model"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), 100)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNewSQLiteRepository_UnusablePath(t *testing.T) {
	// A regular file where the db directory should be makes the open fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if _, err := NewSQLiteRepository(filepath.Join(blocker, "test.db"), 100); err == nil {
		t.Fatal("expected error for unusable database path")
	}
}

func TestSaveBots_LoadBotState(t *testing.T) {
	r := newTestRepository(t)

	if err := r.SaveBots([]model.BotSnapshot{
		{Name: "EmaMacd_1m_SOL", Capital: 102, Wins: 3, Losses: 1},
		{Name: "EmaBounce_5m_BTC", Capital: 97, Wins: 0, Losses: 2},
	}); err != nil {
		t.Fatalf("save bots: %v", err)
	}
	// A later day overwrites the first bot's latest state.
	if err := r.SaveBots([]model.BotSnapshot{
		{Name: "EmaMacd_1m_SOL", Capital: 105, Wins: 4, Losses: 1},
	}); err != nil {
		t.Fatalf("save bots: %v", err)
	}

	states, err := r.LoadBotState()
	if err != nil {
		t.Fatalf("load bot state: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
	byName := map[string]model.BotState{}
	for _, s := range states {
		byName[s.Name] = s
	}
	if got := byName["EmaMacd_1m_SOL"]; got.Capital != 105 || got.Wins != 4 {
		t.Errorf("expected latest snapshot, got %+v", got)
	}
	if got := byName["EmaBounce_5m_BTC"]; got.Capital != 97 {
		t.Errorf("unexpected state: %+v", got)
	}
}

func TestSaveBots_IncludesOpenOrderCapital(t *testing.T) {
	r := newTestRepository(t)
	if err := r.SaveBots([]model.BotSnapshot{
		{Name: "b", Capital: 0, OrderCapital: 99.96},
	}); err != nil {
		t.Fatalf("save bots: %v", err)
	}
	states, err := r.LoadBotState()
	if err != nil {
		t.Fatalf("load bot state: %v", err)
	}
	if math.Abs(states[0].Capital-99.96) > 1e-9 {
		t.Errorf("expected capital-at-risk included, got %f", states[0].Capital)
	}
}

func TestAppendOrders_Queries(t *testing.T) {
	r := newTestRepository(t)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{BotID: 1, BotName: "EmaMacd_1m_SOL", Symbol: model.SymbolSol, Side: model.CommandLong,
			EntryPrice: 100, ExitPrice: 101, Quantity: 9.996, Pnl: 9.99, Roe: 10, Fee: 0.06,
			Leverage: 10, CreatedAt: base, ClosedAt: base.Add(5 * time.Minute)},
		{BotID: 1, BotName: "EmaMacd_1m_SOL", Symbol: model.SymbolSol, Side: model.CommandShort,
			EntryPrice: 101, ExitPrice: 100, Quantity: 9.9, Pnl: 9.9, Roe: 9.9, Fee: 0.06,
			Leverage: 10, CreatedAt: base.Add(time.Hour), ClosedAt: base.Add(2 * time.Hour)},
		{BotID: 2, BotName: "other", Symbol: model.SymbolBtc, Side: model.CommandLong,
			CreatedAt: base, ClosedAt: base},
	}
	if err := r.AppendOrders(orders); err != nil {
		t.Fatalf("append orders: %v", err)
	}

	got, err := r.OrdersByBot("EmaMacd_1m_SOL")
	if err != nil {
		t.Fatalf("orders by bot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	// Newest first.
	if got[0].Side != model.CommandShort {
		t.Errorf("expected newest order first, got %+v", got[0])
	}
	if got[1].EntryPrice != 100 || got[1].Symbol != model.SymbolSol {
		t.Errorf("order fields not preserved: %+v", got[1])
	}

	ranged, err := r.OrdersInRange("EmaMacd_1m_SOL", base, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("orders in range: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Side != model.CommandLong {
		t.Errorf("expected only the first order in range, got %+v", ranged)
	}
}

func TestStatistics(t *testing.T) {
	r := newTestRepository(t)

	days := [][]model.BotSnapshot{
		{{Name: "a", Capital: 105}, {Name: "b", Capital: 95}},
		{{Name: "a", Capital: 110}, {Name: "b", Capital: 100}},
		{{Name: "a", Capital: 98}, {Name: "b", Capital: 90}},
	}
	for _, day := range days {
		if err := r.SaveBots(day); err != nil {
			t.Fatalf("save bots: %v", err)
		}
	}

	stats, err := r.Statistics()
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	// Sorted by cumulative capital delta descending: a = +13, b = -15.
	if stats[0].BotName != "a" || stats[1].BotName != "b" {
		t.Fatalf("unexpected order: %+v", stats)
	}
	a := stats[0]
	if a.WinDays != 2 || a.LoseDays != 1 {
		t.Errorf("expected 2 win days and 1 lose day, got %+v", a)
	}
	if math.Abs(a.Capital-13) > 1e-9 {
		t.Errorf("expected cumulative delta 13, got %f", a.Capital)
	}

	b, err := r.StatisticsByBot("b")
	if err != nil {
		t.Fatalf("statistics by bot: %v", err)
	}
	// Day at exactly the initial capital counts as neither win nor loss.
	if b.WinDays != 0 || b.LoseDays != 2 {
		t.Errorf("unexpected statistics for b: %+v", b)
	}
	if len(b.Results) != 3 {
		t.Errorf("expected 3 daily results, got %d", len(b.Results))
	}
}
