package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/parser"
)

// Transaction counts fed to the model are capped to keep prompts small.
const (
	maxChatContextTxs = 10
	maxInsightTxs     = 50
)

func buildChatPrompt(message, contextText string) string {
	return "You are a helpful financial assistant analyzing M-Pesa transactions.\n" +
		"Context: " + contextText + "\n\n" +
		"User: " + message + "\n\n" +
		"Response:"
}

func buildCategoryPrompt(tx core.Transaction) string {
	return fmt.Sprintf(
		"Categorize this M-Pesa transaction into one of: %s.\n"+
			"Return ONLY the category name.\n\n"+
			"Transaction: %s\nCounterparty: %s\nAmount: %s\n",
		strings.Join(parser.AllCategories(), ", "),
		tx.RawMessage, tx.Counterparty(), tx.Amount)
}

func buildInsightsPrompt(txs []core.Transaction) string {
	if len(txs) > maxInsightTxs {
		txs = txs[:maxInsightTxs]
	}
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		category := tx.Category
		if category == "" {
			category = "Uncategorized"
		}
		lines = append(lines, fmt.Sprintf("%s: %s %s to %s (%s)",
			tx.Date.Format("2006-01-02"), tx.Type, tx.Amount, tx.Counterparty(), category))
	}

	return "Analyze these recent M-Pesa transactions and provide 3-5 brief financial insights.\n" +
		"Format the output as a JSON array of objects with keys: " +
		"type (alert/warning/tip/pattern), title, message, severity (low/medium/high).\n" +
		"Do not include markdown formatting like ```json. Just the raw JSON.\n\n" +
		"Transactions:\n" + strings.Join(lines, "\n")
}

// BuildChatContext summarizes the transaction set for the chat prompt:
// average spend over the last three months plus the most recent
// transactions.
func BuildChatContext(txs []core.Transaction, now time.Time) string {
	months := core.LastNMonths(txs, now.Year(), now.Month(), 3)
	var total float64
	for _, m := range months {
		total += m.TotalSpent.Shillings()
	}
	avg := total / float64(len(months))

	recent := txs
	if len(recent) > maxChatContextTxs {
		recent = recent[:maxChatContextTxs]
	}
	summaries := make([]string, 0, len(recent))
	for _, tx := range recent {
		summaries = append(summaries, fmt.Sprintf("%s %s to %s", tx.Type, tx.Amount, tx.Counterparty()))
	}

	return fmt.Sprintf("Avg monthly spending (last 3 months): %.2f. Recent transactions: %s.",
		avg, strings.Join(summaries, ", "))
}
