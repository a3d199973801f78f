package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/berserkkv/traderrs/internal/model"
)

// SQLiteRepository persists bot history to a SQLite database.
type SQLiteRepository struct {
	db             *sql.DB
	mu             sync.Mutex
	initialCapital float64
}

// NewSQLiteRepository opens (or creates) the database and runs migrations.
// initialCapital is the break-even line for the win/lose day statistics.
func NewSQLiteRepository(dbPath string, initialCapital float64) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent reads from the status API while the loops write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRepository{db: db, initialCapital: initialCapital}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite repository opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bot_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			capital    REAL NOT NULL,
			wins       INTEGER NOT NULL,
			losses     INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_name ON bot_snapshots(name)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_id      INTEGER NOT NULL,
			bot_name    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price  REAL NOT NULL,
			quantity    REAL NOT NULL,
			pnl         REAL NOT NULL,
			roe         REAL NOT NULL,
			fee         REAL NOT NULL,
			leverage    REAL NOT NULL,
			created_at  INTEGER NOT NULL,
			closed_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_bot_name ON orders(bot_name)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_closed_at ON orders(closed_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// LoadBotState returns the most recent snapshot per bot name.
func (r *SQLiteRepository) LoadBotState() ([]model.BotState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT name, capital, wins, losses, created_at FROM bot_snapshots
		WHERE id IN (SELECT MAX(id) FROM bot_snapshots GROUP BY name)`)
	if err != nil {
		return nil, fmt.Errorf("load bot state: %w", err)
	}
	defer rows.Close()

	return scanBotStates(rows)
}

// SaveBot appends a single record.
func (r *SQLiteRepository) SaveBot(snap model.BotSnapshot) error {
	return r.SaveBots([]model.BotSnapshot{snap})
}

// SaveBots appends one record per bot. All rows share one transaction so a
// rollover is either fully recorded or not at all.
func (r *SQLiteRepository) SaveBots(snaps []model.BotSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	now := time.Now().Unix()
	for _, s := range snaps {
		// Capital locked in an open position still belongs to the bot.
		if _, err := tx.Exec(`INSERT INTO bot_snapshots (name, capital, wins, losses, created_at)
			VALUES (?,?,?,?,?)`,
			s.Name, s.Capital+s.OrderCapital, s.Wins, s.Losses, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert snapshot %s: %w", s.Name, err)
		}
	}
	return tx.Commit()
}

// AppendOrders persists a batch of closed orders in one transaction.
func (r *SQLiteRepository) AppendOrders(orders []model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, o := range orders {
		if _, err := tx.Exec(`INSERT INTO orders
			(bot_id, bot_name, symbol, side, entry_price, exit_price, quantity, pnl, roe, fee, leverage, created_at, closed_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			o.BotID, o.BotName, string(o.Symbol), string(o.Side),
			o.EntryPrice, o.ExitPrice, o.Quantity, o.Pnl, o.Roe, o.Fee, o.Leverage,
			o.CreatedAt.Unix(), o.ClosedAt.Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert order for %s: %w", o.BotName, err)
		}
	}
	return tx.Commit()
}

// OrdersByBot returns all persisted orders of one bot, newest first.
func (r *SQLiteRepository) OrdersByBot(botName string) ([]model.Order, error) {
	return r.queryOrders(`SELECT bot_id, bot_name, symbol, side, entry_price, exit_price, quantity,
		pnl, roe, fee, leverage, created_at, closed_at
		FROM orders WHERE bot_name = ? ORDER BY closed_at DESC`, botName)
}

// OrdersInRange returns one bot's orders closed within [start, end].
func (r *SQLiteRepository) OrdersInRange(botName string, start, end time.Time) ([]model.Order, error) {
	return r.queryOrders(`SELECT bot_id, bot_name, symbol, side, entry_price, exit_price, quantity,
		pnl, roe, fee, leverage, created_at, closed_at
		FROM orders WHERE bot_name = ? AND closed_at BETWEEN ? AND ? ORDER BY closed_at DESC`,
		botName, start.Unix(), end.Unix())
}

func (r *SQLiteRepository) queryOrders(query string, args ...any) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var symbol, side string
		var createdAt, closedAt int64
		if err := rows.Scan(&o.BotID, &o.BotName, &symbol, &side, &o.EntryPrice, &o.ExitPrice,
			&o.Quantity, &o.Pnl, &o.Roe, &o.Fee, &o.Leverage, &createdAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Symbol = model.Symbol(symbol)
		o.Side = model.Command(side)
		o.CreatedAt = time.Unix(createdAt, 0)
		o.ClosedAt = time.Unix(closedAt, 0)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Statistics aggregates all persisted daily records per bot name, sorted by
// cumulative capital delta descending.
func (r *SQLiteRepository) Statistics() ([]model.BotStatistic, error) {
	states, err := r.allBotStates("")
	if err != nil {
		return nil, err
	}

	grouped := lo.GroupBy(states, func(s model.BotState) string { return s.Name })
	stats := make([]model.BotStatistic, 0, len(grouped))
	for name, results := range grouped {
		stats = append(stats, r.aggregate(name, results))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Capital > stats[j].Capital })
	return stats, nil
}

// StatisticsByBot aggregates the persisted daily records of one bot name.
func (r *SQLiteRepository) StatisticsByBot(botName string) (model.BotStatistic, error) {
	states, err := r.allBotStates(botName)
	if err != nil {
		return model.BotStatistic{}, err
	}
	return r.aggregate(botName, states), nil
}

func (r *SQLiteRepository) aggregate(name string, results []model.BotState) model.BotStatistic {
	return model.BotStatistic{
		BotName:  name,
		WinDays:  lo.CountBy(results, func(s model.BotState) bool { return s.Capital > r.initialCapital }),
		LoseDays: lo.CountBy(results, func(s model.BotState) bool { return s.Capital < r.initialCapital }),
		Capital: lo.SumBy(results, func(s model.BotState) float64 {
			return s.Capital - r.initialCapital
		}),
		Results: results,
	}
}

func (r *SQLiteRepository) allBotStates(botName string) ([]model.BotState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT name, capital, wins, losses, created_at FROM bot_snapshots`
	args := []any{}
	if botName != "" {
		query += ` WHERE name = ?`
		args = append(args, botName)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	return scanBotStates(rows)
}

func scanBotStates(rows *sql.Rows) ([]model.BotState, error) {
	var states []model.BotState
	for rows.Next() {
		var s model.BotState
		var createdAt int64
		if err := rows.Scan(&s.Name, &s.Capital, &s.Wins, &s.Losses, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0)
		states = append(states, s)
	}
	return states, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	log.Println("[INFO] closing sqlite repository")
	return r.db.Close()
}
