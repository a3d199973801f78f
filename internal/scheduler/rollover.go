package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/repository"
)

// Rollover persists every bot's end-of-day state and resets the fleet. It
// runs on its own cron timer at local midnight, decoupled from the entry
// scheduler's tick arithmetic.
type Rollover struct {
	cron  *cron.Cron
	fleet *bot.Fleet
	repo  repository.Repository
}

// NewRollover creates the daily rollover task.
func NewRollover(fleet *bot.Fleet, repo repository.Repository) *Rollover {
	return &Rollover{
		cron:  cron.New(cron.WithSeconds()),
		fleet: fleet,
		repo:  repo,
	}
}

// Start registers the midnight task and starts the timer.
func (r *Rollover) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, r.RunNow); err != nil {
		return fmt.Errorf("register rollover task: %w", err)
	}
	r.cron.Start()
	log.Printf("[INFO] daily rollover scheduled: %s", spec)
	return nil
}

// Stop stops the timer gracefully.
func (r *Rollover) Stop() {
	r.cron.Stop()
}

// RunNow executes the rollover immediately: snapshot, persist, reset.
func (r *Rollover) RunNow() {
	log.Println("[INFO] running daily rollover")
	snaps := r.fleet.Snapshots()
	if err := r.repo.SaveBots(snaps); err != nil {
		// The reset still proceeds; the in-memory fleet is authoritative.
		log.Printf("[ERROR] persist daily snapshots: %v", err)
	}
	r.fleet.ResetAll(time.Now())
}
