package core

import (
	"sort"
	"time"
)

// Contact ranking views supported by TopContacts.
const (
	RankByAmount ContactRanking = "amount"
	RankByCount  ContactRanking = "count"
)

type (
	ContactRanking string

	// MonthlyStats is a derived snapshot for one calendar year+month.
	// It is always recomputed from the transaction set, never mutated
	// independently.
	MonthlyStats struct {
		Year          int
		Month         time.Month
		TotalSpent    Money
		TotalReceived Money
		NetFlow       Money
		Count         int
		ByCategory    map[string]Money // spend only
		Transactions  []Transaction
	}

	// CategoryShare is one entry of a top-categories ranking.
	CategoryShare struct {
		Category   string
		Amount     Money
		Percentage float64 // share of the month's total spend, 0 when spend is 0
	}

	// ContactTotal is one entry of a top-contacts ranking.
	ContactTotal struct {
		Name  string
		Total Money
		Count int
	}

	// Comparison relates a month's spend to the immediately preceding month.
	Comparison struct {
		Current           MonthlyStats
		Previous          MonthlyStats
		SpendingChange    Money
		SpendingChangePct float64 // 0 when the previous month's spend is 0
	}
)

// TransactionsForMonth filters to transactions dated in the given
// calendar year and month.
func TransactionsForMonth(txs []Transaction, year int, month time.Month) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	return out
}

// CalculateMonthlyStats partitions by calendar month and totals spend,
// income and per-category spend. All non-received types count as spend.
func CalculateMonthlyStats(txs []Transaction, year int, month time.Month) MonthlyStats {
	stats := MonthlyStats{
		Year:       year,
		Month:      month,
		ByCategory: make(map[string]Money),
	}
	monthTxs := TransactionsForMonth(txs, year, month)
	for _, tx := range monthTxs {
		if tx.Spend() {
			stats.TotalSpent = stats.TotalSpent.Add(tx.Amount)
			stats.ByCategory[tx.Category] = stats.ByCategory[tx.Category].Add(tx.Amount)
		} else {
			stats.TotalReceived = stats.TotalReceived.Add(tx.Amount)
		}
	}
	stats.NetFlow = stats.TotalReceived.Sub(stats.TotalSpent)
	stats.Count = len(monthTxs)
	stats.Transactions = monthTxs
	return stats
}

// LastNMonths returns stats for the given month and the n-1 months
// before it, most recent first.
func LastNMonths(txs []Transaction, year int, month time.Month, n int) []MonthlyStats {
	out := make([]MonthlyStats, 0, n)
	anchor := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		d := anchor.AddDate(0, -i, 0)
		out = append(out, CalculateMonthlyStats(txs, d.Year(), d.Month()))
	}
	return out
}

// TopCategories ranks a month's spend categories descending and
// annotates each with its share of total spend. Ties break on name so
// output is stable for identical input.
func TopCategories(stats MonthlyStats, n int) []CategoryShare {
	shares := make([]CategoryShare, 0, len(stats.ByCategory))
	for name, amount := range stats.ByCategory {
		share := CategoryShare{Category: name, Amount: amount}
		if stats.TotalSpent.Cents > 0 {
			share.Percentage = amount.Shillings() / stats.TotalSpent.Shillings() * 100
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].Category < shares[j].Category
	})
	if n > 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

// TopContacts ranks distinct counterparties for one flow direction.
// inbound selects senders of money received; otherwise recipients of
// money sent out. rank chooses the ordering view.
func TopContacts(txs []Transaction, inbound bool, rank ContactRanking, n int) []ContactTotal {
	totals := make(map[string]*ContactTotal)
	for _, tx := range txs {
		if tx.Type.Inbound() != inbound {
			continue
		}
		name := tx.Counterparty()
		if name == "" {
			continue
		}
		ct, ok := totals[name]
		if !ok {
			ct = &ContactTotal{Name: name}
			totals[name] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}
	out := make([]ContactTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if rank == RankByCount {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
		} else {
			if out[i].Total.Cents != out[j].Total.Cents {
				return out[i].Total.Cents > out[j].Total.Cents
			}
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CompareWithPrevious computes the month-over-month spend change for
// the given month. The percentage change is defined as 0 when the
// previous month spent nothing.
func CompareWithPrevious(txs []Transaction, year int, month time.Month) Comparison {
	current := CalculateMonthlyStats(txs, year, month)
	prev := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	previous := CalculateMonthlyStats(txs, prev.Year(), prev.Month())

	cmp := Comparison{
		Current:        current,
		Previous:       previous,
		SpendingChange: current.TotalSpent.Sub(previous.TotalSpent),
	}
	if previous.TotalSpent.Cents > 0 {
		cmp.SpendingChangePct = cmp.SpendingChange.Shillings() / previous.TotalSpent.Shillings() * 100
	}
	return cmp
}

// DailyAverage divides the month's total spend by the number of
// calendar days in that month. A stated approximation, not a forecast.
func DailyAverage(stats MonthlyStats) float64 {
	days := time.Date(stats.Year, stats.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return stats.TotalSpent.Shillings() / float64(days)
}
