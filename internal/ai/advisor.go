// Package ai provides the Gemini-backed advisor: chat over spending
// context, closed-vocabulary category suggestions and spending
// insights. The advisor is an independent subsystem; its failures never
// propagate into the sync or parsing paths.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/cache"
	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/parser"
)

const (
	insightCacheSize = 16
	insightCacheTTL  = 30 * time.Minute
)

// Insight is one model-produced observation about spending behavior.
type Insight struct {
	Type     string `json:"type"` // alert, warning, tip or pattern
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // low, medium or high
}

// Generator is the remote text-generation boundary: freeform prompt in,
// freeform text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Advisor builds prompts from transaction data and defensively parses
// the model's replies.
type Advisor struct {
	gen      Generator
	insights *cache.LRU[[]Insight]
}

func NewAdvisor(gen Generator) *Advisor {
	return &Advisor{
		gen:      gen,
		insights: cache.NewLRU[[]Insight](insightCacheSize, insightCacheTTL),
	}
}

// Chat answers a freeform user question given a spending-context
// summary (see BuildChatContext).
func (a *Advisor) Chat(ctx context.Context, message, contextText string) (string, error) {
	reply, err := a.gen.Generate(ctx, buildChatPrompt(message, contextText))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// SuggestCategory asks the model to re-categorize a transaction. The
// reply is constrained to the closed category vocabulary; anything else
// — including any model failure — degrades to "Other".
func (a *Advisor) SuggestCategory(ctx context.Context, tx core.Transaction) string {
	reply, err := a.gen.Generate(ctx, buildCategoryPrompt(tx))
	if err != nil {
		slog.WarnContext(ctx, "Category suggestion failed", "id", tx.ID, "error", err)
		return parser.CategoryOther
	}
	label := strings.TrimSpace(reply)
	if !parser.ValidCategory(label) {
		slog.DebugContext(ctx, "Model returned out-of-vocabulary category",
			"id", tx.ID, "label", label)
		return parser.CategoryOther
	}
	return label
}

// AnalyzeSpending generates insights from recent transactions.
// Malformed model output is treated as "no insights produced", never as
// an error. Results are cached briefly so repeated dashboard loads do
// not re-query the model.
func (a *Advisor) AnalyzeSpending(ctx context.Context, txs []core.Transaction) []Insight {
	if len(txs) == 0 {
		return nil
	}
	key := insightCacheKey(txs)
	if cached, ok := a.insights.Get(key); ok {
		return cached
	}

	reply, err := a.gen.Generate(ctx, buildInsightsPrompt(txs))
	if err != nil {
		slog.WarnContext(ctx, "Insight generation failed", "error", err)
		return nil
	}

	var insights []Insight
	if err := json.Unmarshal([]byte(cleanModelJSON(reply)), &insights); err != nil {
		slog.WarnContext(ctx, "Discarding malformed insight output", "error", err)
		return nil
	}

	a.insights.Set(key, insights)
	return insights
}

func insightCacheKey(txs []core.Transaction) string {
	// Newest transaction plus count identifies the snapshot well enough.
	return fmt.Sprintf("%s:%d", txs[0].ID, len(txs))
}

// cleanModelJSON strips markdown code fences and surrounding junk the
// model may emit despite instructions, keeping the outermost JSON
// array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
