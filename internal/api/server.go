// Package api exposes the read-mostly status surface of the engine: fleet
// snapshots, order history, daily statistics and a process health endpoint.
// All handlers serve JSON and read through the same per-bot locks the
// scheduling loops use, so a response is always self-consistent per bot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/model"
	"github.com/berserkkv/traderrs/internal/repository"
)

// Server is the HTTP status API.
type Server struct {
	fleet     *bot.Fleet
	repo      repository.Repository
	connector string
	addr      string
	startedAt time.Time
}

// NewServer creates the status API bound to the given fleet and repository.
func NewServer(fleet *bot.Fleet, repo repository.Repository, connector, addr string) *Server {
	return &Server{
		fleet:     fleet,
		repo:      repo,
		connector: connector,
		addr:      addr,
		startedAt: time.Now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/bots", s.handleBots)
	mux.HandleFunc("GET /api/v1/bots/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/v1/bots/{name}/orders", s.handleOrders)
	mux.HandleFunc("GET /api/v1/bots/{name}/statistics", s.handleBotStatistics)
	mux.HandleFunc("GET /api/v1/bots/{name}/statistics/range", s.handleOrdersInRange)
	mux.HandleFunc("PUT /api/v1/bots/reset", s.handleReset)
	mux.HandleFunc("GET /api/v1/system", s.handleSystem)
	return cors(mux)
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] status API listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleBots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.fleet.Snapshots())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.repo.OrdersByBot(r.PathValue("name"))
	if err != nil {
		log.Printf("[ERROR] orders query: %v", err)
		writeError(w, http.StatusInternalServerError, "orders query failed")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.repo.Statistics()
	if err != nil {
		log.Printf("[ERROR] statistics query: %v", err)
		writeError(w, http.StatusInternalServerError, "statistics query failed")
		return
	}
	if stats == nil {
		stats = []model.BotStatistic{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleBotStatistics(w http.ResponseWriter, r *http.Request) {
	stat, err := s.repo.StatisticsByBot(r.PathValue("name"))
	if err != nil {
		log.Printf("[ERROR] statistics query: %v", err)
		writeError(w, http.StatusInternalServerError, "statistics query failed")
		return
	}
	writeJSON(w, http.StatusOK, stat)
}

// rangeSummary aggregates a bot's closed orders inside a time window.
type rangeSummary struct {
	BotName  string        `json:"botName"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Wins     int           `json:"wins"`
	Losses   int           `json:"losses"`
	TotalPnl float64       `json:"totalPnl"`
	TotalFee float64       `json:"totalFee"`
	Orders   []model.Order `json:"orders"`
}

// handleOrdersInRange answers ?start=..&end=.. in RFC 3339; the window
// defaults to the last 24 hours.
func (s *Server) handleOrdersInRange(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC 3339")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	name := r.PathValue("name")
	orders, err := s.repo.OrdersInRange(name, start, end)
	if err != nil {
		log.Printf("[ERROR] range query: %v", err)
		writeError(w, http.StatusInternalServerError, "range query failed")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, rangeSummary{
		BotName:  name,
		Start:    start,
		End:      end,
		Wins:     lo.CountBy(orders, func(o model.Order) bool { return o.Pnl > 0 }),
		Losses:   lo.CountBy(orders, func(o model.Order) bool { return o.Pnl <= 0 }),
		TotalPnl: lo.SumBy(orders, func(o model.Order) float64 { return o.Pnl }),
		TotalFee: lo.SumBy(orders, func(o model.Order) float64 { return o.Fee }),
		Orders:   orders,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	log.Println("[INFO] fleet reset requested via API")
	s.fleet.ResetAll(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"connector":  s.connector,
		"bots":       len(s.fleet.Bots()),
		"goroutines": runtime.NumGoroutine(),
		"cpus":       runtime.NumCPU(),
		"memAlloc":   humanize.Bytes(mem.Alloc),
		"memSys":     humanize.Bytes(mem.Sys),
		"uptime":     humanize.Time(s.startedAt),
		"startedAt":  s.startedAt,
	})
}
