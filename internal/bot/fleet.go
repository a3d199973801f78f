package bot

import (
	"sort"
	"time"

	"github.com/berserkkv/traderrs/internal/model"
	"github.com/samber/lo"
)

// Fleet is the fixed arena of bot entities. The slice is built once at
// startup and never resized, so both scheduling loops and the status API can
// range over it without further coordination; all mutation happens through
// the per-bot locks.
type Fleet struct {
	bots []*Bot
}

// NewFleet builds the arena from the configured bots.
func NewFleet(bots []*Bot) *Fleet {
	return &Fleet{bots: bots}
}

// Bots returns the arena. Callers must not grow or reorder it.
func (f *Fleet) Bots() []*Bot {
	return f.bots
}

// Rehydrate applies persisted end-of-day records to the matching bots by
// name. Configured bots without a record keep their fresh state.
func (f *Fleet) Rehydrate(states []model.BotState) {
	byName := make(map[string]model.BotState, len(states))
	for _, s := range states {
		byName[s.Name] = s
	}
	for _, b := range f.bots {
		if s, ok := byName[b.Name]; ok {
			b.Rehydrate(s)
		}
	}
}

// DueGroups returns the distinct (timeframe, symbol) groups whose timeframe
// boundary falls on the given minute.
func (f *Fleet) DueGroups(minute int) []model.Group {
	groups := make([]model.Group, 0, len(f.bots))
	for _, b := range f.bots {
		if b.Timeframe.Due(minute) {
			groups = append(groups, b.Group())
		}
	}
	return lo.Uniq(groups)
}

// OpenSymbols returns the distinct symbols across all bots holding an open
// position.
func (f *Fleet) OpenSymbols() []model.Symbol {
	symbols := make([]model.Symbol, 0, len(f.bots))
	for _, b := range f.bots {
		if b.InPosition() {
			symbols = append(symbols, b.Symbol)
		}
	}
	return lo.Uniq(symbols)
}

// ResetAll restores every bot to its starting state.
func (f *Fleet) ResetAll(now time.Time) {
	for _, b := range f.bots {
		b.Reset(now)
	}
}

// Snapshots returns a consistent-per-bot copy of the fleet, sorted for
// display: active bots first, then capital descending, then timeframe.
func (f *Fleet) Snapshots() []model.BotSnapshot {
	snaps := make([]model.BotSnapshot, len(f.bots))
	for i, b := range f.bots {
		snaps[i] = b.Snapshot()
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].IsNotActive != snaps[j].IsNotActive {
			return !snaps[i].IsNotActive
		}
		if snaps[i].Capital != snaps[j].Capital {
			return snaps[i].Capital > snaps[j].Capital
		}
		return snaps[i].Timeframe.Minutes() < snaps[j].Timeframe.Minutes()
	})
	return snaps
}
