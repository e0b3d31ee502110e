package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/ai"
	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/parser"
	"github.com/victoroki/MPESAAnalyzer/internal/sms"
	"github.com/victoroki/MPESAAnalyzer/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxRecentMonths = 24
)

type transactionJSON struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	Counterparty    string  `json:"counterparty"`
	Balance         float64 `json:"balance"`
	TransactionCode string  `json:"transaction_code,omitempty"`
	Date            string  `json:"date"`
	Category        string  `json:"category"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:              tx.ID,
		Type:            string(tx.Type),
		Amount:          tx.Amount.Shillings(),
		Counterparty:    tx.Counterparty(),
		Balance:         tx.Balance.Shillings(),
		TransactionCode: tx.TransactionCode,
		Date:            tx.Date.Format(time.RFC3339),
		Category:        tx.Category,
	}
}

type monthlyStatsJSON struct {
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	TotalSpent    float64            `json:"total_spent"`
	TotalReceived float64            `json:"total_received"`
	NetFlow       float64            `json:"net_flow"`
	Count         int                `json:"transaction_count"`
	DailyAverage  float64            `json:"daily_average"`
	ByCategory    map[string]float64 `json:"by_category"`
}

func toMonthlyStatsJSON(stats core.MonthlyStats) monthlyStatsJSON {
	byCategory := make(map[string]float64, len(stats.ByCategory))
	for category, amount := range stats.ByCategory {
		byCategory[category] = amount.Shillings()
	}
	return monthlyStatsJSON{
		Year:          stats.Year,
		Month:         int(stats.Month),
		TotalSpent:    stats.TotalSpent.Shillings(),
		TotalReceived: stats.TotalReceived.Shillings(),
		NetFlow:       stats.NetFlow.Shillings(),
		Count:         stats.Count,
		DailyAverage:  core.DailyAverage(stats),
		ByCategory:    byCategory,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryMonth reads year/month query parameters, defaulting to the
// current month.
func queryMonth(r *http.Request) (int, time.Month, error) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2200 {
			return 0, 0, errors.New("invalid year")
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, errors.New("invalid month")
		}
		month = time.Month(m)
	}
	return year, month, nil
}

func queryInt(r *http.Request, key string, def, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	inserted, err := s.syncer.Sync(r.Context())
	switch {
	case errors.Is(err, sms.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "SMS read permission denied")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	if inserted > 0 {
		s.invalidateStats()
	}
	writeJSON(w, http.StatusOK, map[string]any{"inserted": inserted})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"syncing": s.syncer.Syncing()})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize, maxPageSize)
	offset := queryInt(r, "offset", 0, 1<<30)

	txs, err := s.store.ListPage(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"limit":        limit,
		"offset":       offset,
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !parser.ValidCategory(body.Category) {
		writeError(w, http.StatusBadRequest, "unknown category: "+body.Category)
		return
	}

	err := s.updater.UpdateCategory(r.Context(), id, body.Category)
	switch {
	case errors.Is(err, storage.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to update category", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "category": body.Category})
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.monthlyStats(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute monthly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyStatsJSON(stats))
}

func (s *Server) handleRecentStats(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 3, maxRecentMonths)
	now := time.Now()

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).
		AddDate(0, -(months - 1), 0)
	txs, err := s.store.ListRange(r.Context(), from, now)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	monthly := core.LastNMonths(txs, now.Year(), now.Month(), months)
	out := make([]monthlyStatsJSON, 0, len(monthly))
	for _, stats := range monthly {
		out = append(out, toMonthlyStatsJSON(stats))
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": out})
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := queryInt(r, "n", 5, 50)

	stats, err := s.monthlyStats(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute monthly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	shares := core.TopCategories(stats, n)
	type shareJSON struct {
		Category   string  `json:"category"`
		Amount     float64 `json:"amount"`
		Percentage float64 `json:"percentage"`
	}
	out := make([]shareJSON, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareJSON{
			Category:   sh.Category,
			Amount:     sh.Amount.Shillings(),
			Percentage: sh.Percentage,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleTopContacts(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := queryInt(r, "n", 5, 50)

	inbound := false
	switch dir := r.URL.Query().Get("direction"); dir {
	case "", "out":
	case "in":
		inbound = true
	default:
		writeError(w, http.StatusBadRequest, "direction must be 'in' or 'out'")
		return
	}

	rank := core.RankByAmount
	switch by := r.URL.Query().Get("rank"); by {
	case "", "amount":
	case "count":
		rank = core.RankByCount
	default:
		writeError(w, http.StatusBadRequest, "rank must be 'amount' or 'count'")
		return
	}

	stats, err := s.monthlyStats(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute monthly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	contacts := core.TopContacts(stats.Transactions, inbound, rank, n)
	type contactJSON struct {
		Name  string  `json:"name"`
		Total float64 `json:"total"`
		Count int     `json:"count"`
	}
	out := make([]contactJSON, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, contactJSON{Name: c.Name, Total: c.Total.Shillings(), Count: c.Count})
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": out})
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Need both the requested month and the one before it.
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, -1, 0)
	to := time.Date(year, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, 0)
	txs, err := s.store.ListRange(r.Context(), from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute comparison")
		return
	}

	cmp := core.CompareWithPrevious(txs, year, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"current":             toMonthlyStatsJSON(cmp.Current),
		"previous":            toMonthlyStatsJSON(cmp.Previous),
		"spending_change":     cmp.SpendingChange.Shillings(),
		"spending_change_pct": cmp.SpendingChangePct,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant not configured")
		return
	}

	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.monthlyStats(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute monthly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	insights := s.assistant.AnalyzeSpending(r.Context(), stats.Transactions)
	if insights == nil {
		insights = []ai.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant not configured")
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -2, 0)
	txs, err := s.store.ListRange(r.Context(), from, now)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions for chat", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build chat context")
		return
	}

	reply, err := s.assistant.Chat(r.Context(), body.Message, ai.BuildChatContext(txs, now))
	if err != nil {
		slog.ErrorContext(r.Context(), "Chat request failed", "error", err)
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	if s.keys == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant not configured")
		return
	}

	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key cannot be empty")
		return
	}

	if err := s.keys.SetAPIKey(r.Context(), body.APIKey); err != nil {
		slog.ErrorContext(r.Context(), "Failed to store API key", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
