package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/parser"
)

// fakeGenerator returns canned replies and records prompts.
type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func aiTx(id string) core.Transaction {
	return core.Transaction{
		ID:         id,
		Type:       core.TypePayment,
		Amount:     core.Money{Cents: 50000},
		Recipient:  "NAIVAS SUPERMARKET",
		Date:       time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC),
		RawMessage: "raw",
		Category:   parser.CategoryShopping,
	}
}

func TestChat(t *testing.T) {
	gen := &fakeGenerator{reply: "  You spent most on shopping.  "}
	advisor := NewAdvisor(gen)

	reply, err := advisor.Chat(context.Background(), "Where does my money go?", "ctx")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "You spent most on shopping." {
		t.Errorf("reply = %q, want trimmed model output", reply)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "Where does my money go?") {
		t.Error("prompt must embed the user message")
	}
}

func TestChat_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	advisor := NewAdvisor(gen)

	if _, err := advisor.Chat(context.Background(), "hi", "ctx"); err == nil {
		t.Error("Chat swallowed generator error")
	}
}

func TestSuggestCategory(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "valid label", reply: "Food & Dining", want: parser.CategoryFood},
		{name: "label with whitespace", reply: "  Transport \n", want: parser.CategoryTransport},
		{name: "out of vocabulary", reply: "Gambling", want: parser.CategoryOther},
		{name: "rambling answer", reply: "I think this is Shopping because...", want: parser.CategoryOther},
		{name: "generator failure", err: errors.New("boom"), want: parser.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := NewAdvisor(&fakeGenerator{reply: tt.reply, err: tt.err})
			got := advisor.SuggestCategory(context.Background(), aiTx("1"))
			if got != tt.want {
				t.Errorf("SuggestCategory = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeSpending(t *testing.T) {
	raw := `[{"type":"tip","title":"Cut shopping","message":"Shopping dominates spend","severity":"medium"}]`
	tests := []struct {
		name  string
		reply string
		wantN int
	}{
		{name: "plain JSON", reply: raw, wantN: 1},
		{name: "fenced JSON", reply: "```json\n" + raw + "\n```", wantN: 1},
		{name: "fence without language", reply: "```\n" + raw + "\n```", wantN: 1},
		{name: "prose around array", reply: "Here you go:\n" + raw + "\nHope it helps!", wantN: 1},
		{name: "malformed", reply: "{not an array", wantN: 0},
		{name: "empty reply", reply: "", wantN: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := NewAdvisor(&fakeGenerator{reply: tt.reply})
			got := advisor.AnalyzeSpending(context.Background(), []core.Transaction{aiTx("1")})
			if len(got) != tt.wantN {
				t.Fatalf("insights = %d, want %d", len(got), tt.wantN)
			}
			if tt.wantN == 1 && got[0].Title != "Cut shopping" {
				t.Errorf("Title = %q", got[0].Title)
			}
		})
	}
}

func TestAnalyzeSpending_EmptyInput(t *testing.T) {
	gen := &fakeGenerator{reply: "[]"}
	advisor := NewAdvisor(gen)

	if got := advisor.AnalyzeSpending(context.Background(), nil); got != nil {
		t.Errorf("insights = %v, want nil for empty input", got)
	}
	if len(gen.prompts) != 0 {
		t.Error("model must not be called for empty input")
	}
}

func TestAnalyzeSpending_CachesResult(t *testing.T) {
	gen := &fakeGenerator{reply: `[{"type":"tip","title":"t","message":"m","severity":"low"}]`}
	advisor := NewAdvisor(gen)
	txs := []core.Transaction{aiTx("1"), aiTx("2")}

	first := advisor.AnalyzeSpending(context.Background(), txs)
	second := advisor.AnalyzeSpending(context.Background(), txs)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("insights = %d/%d, want 1/1", len(first), len(second))
	}
	if len(gen.prompts) != 1 {
		t.Errorf("model calls = %d, want 1 (second served from cache)", len(gen.prompts))
	}
}

func TestAnalyzeSpending_GeneratorErrorNotCached(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("unavailable")}
	advisor := NewAdvisor(gen)
	txs := []core.Transaction{aiTx("1")}

	if got := advisor.AnalyzeSpending(context.Background(), txs); got != nil {
		t.Errorf("insights = %v, want nil on failure", got)
	}

	gen.err = nil
	gen.reply = `[{"type":"tip","title":"t","message":"m","severity":"low"}]`
	if got := advisor.AnalyzeSpending(context.Background(), txs); len(got) != 1 {
		t.Errorf("insights after recovery = %d, want 1", len(got))
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"passthrough", `[1,2]`, `[1,2]`},
		{"json fence", "```json\n[1,2]\n```", `[1,2]`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding prose", "sure:\n[1,2]\ndone", `[1,2]`},
		{"no array at all", "no data here", "no data here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
