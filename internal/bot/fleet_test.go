package bot

import (
	"testing"
	"time"

	"github.com/berserkkv/traderrs/internal/model"
)

func newTestFleet() *Fleet {
	var bots []*Bot
	for _, tf := range []model.Timeframe{model.Timeframe1m, model.Timeframe5m} {
		for _, sym := range []model.Symbol{model.SymbolSol, model.SymbolBtc} {
			for _, st := range []string{"EmaMacd", "EmaBounce"} {
				cfg := testConfig()
				cfg.Timeframe = tf
				cfg.Symbol = sym
				cfg.StrategyName = st
				bots = append(bots, New(cfg))
			}
		}
	}
	return NewFleet(bots)
}

func TestDueGroups(t *testing.T) {
	f := newTestFleet()

	// Minute 3: only the 1m timeframe is due, one group per symbol.
	groups := f.DueGroups(3)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups at minute 3, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Timeframe != model.Timeframe1m {
			t.Errorf("unexpected timeframe at minute 3: %s", g.Timeframe)
		}
	}

	// Minute 5: 1m and 5m are due.
	if groups = f.DueGroups(5); len(groups) != 4 {
		t.Errorf("expected 4 groups at minute 5, got %d", len(groups))
	}
}

func TestOpenSymbols(t *testing.T) {
	f := newTestFleet()
	if syms := f.OpenSymbols(); len(syms) != 0 {
		t.Fatalf("expected no open symbols, got %v", syms)
	}

	now := time.Now()
	// Two bots on the same symbol: the symbol must appear once.
	opened := 0
	for _, b := range f.Bots() {
		if b.Symbol == model.SymbolBtc && opened < 2 {
			if err := b.OpenPosition(model.CommandLong, 100, now); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			opened++
		}
	}
	syms := f.OpenSymbols()
	if len(syms) != 1 || syms[0] != model.SymbolBtc {
		t.Errorf("expected [BTCUSDT], got %v", syms)
	}
}

func TestSnapshots_Sorting(t *testing.T) {
	f := newTestFleet()
	now := time.Now()

	// Ruin one bot so it deactivates.
	loser := f.Bots()[0]
	if err := loser.OpenPosition(model.CommandLong, 100, now); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := loser.ClosePosition(90, now); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	snaps := f.Snapshots()
	if len(snaps) != len(f.Bots()) {
		t.Fatalf("expected %d snapshots, got %d", len(f.Bots()), len(snaps))
	}
	if snaps[len(snaps)-1].Name != loser.Name {
		t.Errorf("deactivated bot must sort last, got %s", snaps[len(snaps)-1].Name)
	}
	for i := 1; i < len(snaps)-1; i++ {
		if snaps[i-1].Capital < snaps[i].Capital {
			t.Errorf("active bots not sorted by capital desc at index %d", i)
		}
	}
}

func TestRehydrateFleet(t *testing.T) {
	f := newTestFleet()
	name := f.Bots()[2].Name
	f.Rehydrate([]model.BotState{{Name: name, Capital: 95, Wins: 2, Losses: 1}})

	snap := f.Bots()[2].Snapshot()
	if snap.Capital != 95 || snap.Wins != 2 {
		t.Errorf("rehydration not applied: %+v", snap)
	}
	if other := f.Bots()[3].Snapshot(); other.Capital != 100 {
		t.Errorf("unrelated bot mutated: %+v", other)
	}
}

func TestResetAll(t *testing.T) {
	f := newTestFleet()
	now := time.Now()
	for _, b := range f.Bots()[:3] {
		if err := b.OpenPosition(model.CommandShort, 50, now); err != nil {
			t.Fatalf("open failed: %v", err)
		}
	}
	f.ResetAll(now)
	for _, b := range f.Bots() {
		snap := b.Snapshot()
		if snap.InPos || snap.Capital != 100 {
			t.Errorf("bot %s not reset: %+v", snap.Name, snap)
		}
	}
}
