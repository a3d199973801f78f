package repository

import (
	"time"

	"github.com/berserkkv/traderrs/internal/model"
)

// Repository persists daily bot snapshots and closed orders. Persistence is
// advisory: the in-memory fleet stays the source of truth, so implementations
// must tolerate the engine continuing after a failed write.
type Repository interface {
	// LoadBotState returns the latest persisted record per bot name for
	// startup rehydration.
	LoadBotState() ([]model.BotState, error)
	// SaveBot appends one record for a single bot.
	SaveBot(snap model.BotSnapshot) error
	// SaveBots appends one end-of-day record per bot.
	SaveBots(snaps []model.BotSnapshot) error
	// AppendOrders persists a batch of closed orders.
	AppendOrders(orders []model.Order) error

	OrdersByBot(botName string) ([]model.Order, error)
	OrdersInRange(botName string, start, end time.Time) ([]model.Order, error)

	// Statistics aggregates the persisted daily records per bot name.
	Statistics() ([]model.BotStatistic, error)
	StatisticsByBot(botName string) (model.BotStatistic, error)

	Close() error
}

// NoopRepository discards writes and returns empty reads. Used when no
// database path is configured.
type NoopRepository struct{}

func NewNoopRepository() *NoopRepository { return &NoopRepository{} }

func (n *NoopRepository) LoadBotState() ([]model.BotState, error)      { return nil, nil }
func (n *NoopRepository) SaveBot(model.BotSnapshot) error              { return nil }
func (n *NoopRepository) SaveBots([]model.BotSnapshot) error           { return nil }
func (n *NoopRepository) AppendOrders([]model.Order) error             { return nil }
func (n *NoopRepository) OrdersByBot(string) ([]model.Order, error)    { return nil, nil }
func (n *NoopRepository) Statistics() ([]model.BotStatistic, error)    { return nil, nil }
func (n *NoopRepository) Close() error                                 { return nil }

func (n *NoopRepository) OrdersInRange(string, time.Time, time.Time) ([]model.Order, error) {
	return nil, nil
}

func (n *NoopRepository) StatisticsByBot(string) (model.BotStatistic, error) {
	return model.BotStatistic{}, nil
}
