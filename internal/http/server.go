// Package http exposes the analyzer over a JSON API: triggering sync
// passes, browsing transactions, monthly statistics, and the AI
// assistant endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/ai"
	"github.com/victoroki/MPESAAnalyzer/internal/cache"
	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/middleware/trace"
)

// TransactionReader reads persisted transactions.
type TransactionReader interface {
	ListPage(ctx context.Context, limit, offset int) ([]core.Transaction, error)
	ListRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
}

// CategoryUpdater overrides the category of a stored transaction.
type CategoryUpdater interface {
	UpdateCategory(ctx context.Context, id, category string) error
}

// Syncer runs incremental sync passes on demand.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
	Syncing() bool
}

// Assistant is the AI surface the API exposes.
type Assistant interface {
	Chat(ctx context.Context, message, contextText string) (string, error)
	AnalyzeSpending(ctx context.Context, txs []core.Transaction) []ai.Insight
}

// KeyStore persists the Gemini API key.
type KeyStore interface {
	SetAPIKey(ctx context.Context, key string) error
}

// Server is the JSON API server.
type Server struct {
	http.Server

	store     TransactionReader
	updater   CategoryUpdater
	syncer    Syncer
	assistant Assistant
	keys      KeyStore

	// Cached monthly stats, invalidated after a sync inserts rows.
	statsCache *cache.LRU[core.MonthlyStats]

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
// assistant and keys may be nil when the AI surface is not configured;
// the corresponding endpoints then return 503.
func NewServer(addr string, store TransactionReader, updater CategoryUpdater, syncer Syncer, assistant Assistant, keys KeyStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           nil,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:      store,
		updater:    updater,
		syncer:     syncer,
		assistant:  assistant,
		keys:       keys,
		statsCache: cache.NewLRU[core.MonthlyStats](48, 5*time.Minute),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("GET /api/sync", s.handleSyncStatus)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("PUT /api/transactions/{id}/category", s.handleUpdateCategory)

	mux.HandleFunc("GET /api/stats/monthly", s.handleMonthlyStats)
	mux.HandleFunc("GET /api/stats/recent", s.handleRecentStats)
	mux.HandleFunc("GET /api/stats/categories", s.handleTopCategories)
	mux.HandleFunc("GET /api/stats/contacts", s.handleTopContacts)
	mux.HandleFunc("GET /api/stats/comparison", s.handleComparison)

	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("PUT /api/settings/gemini-key", s.handleSetAPIKey)

	tracer := trace.NewMiddleware(clientIP)
	s.Handler = tracer.Middleware(mux)

	return s
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ready")
}

func (s *Server) statsCacheKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// monthlyStats computes stats for one month, serving from cache when
// possible.
func (s *Server) monthlyStats(ctx context.Context, year int, month time.Month) (core.MonthlyStats, error) {
	key := s.statsCacheKey(year, month)
	if stats, ok := s.statsCache.Get(key); ok {
		return stats, nil
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)
	txs, err := s.store.ListRange(ctx, from, to)
	if err != nil {
		return core.MonthlyStats{}, err
	}

	stats := core.CalculateMonthlyStats(txs, year, month)
	s.statsCache.Set(key, stats)
	return stats, nil
}

// invalidateStats drops all cached months. Sync passes can insert
// transactions into any month, so targeted invalidation is not worth
// the bookkeeping.
func (s *Server) invalidateStats() {
	s.statsCache.Clear()
}
