package parser

import (
	"strings"
	"unicode"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
)

// Category labels assigned by the rule-based categorizer. The remote
// advisor is constrained to the same vocabulary.
const (
	CategoryIncome     = "Income"
	CategoryWithdrawal = "Cash Withdrawal"
	CategoryAirtime    = "Airtime"
	CategoryShopping   = "Shopping"
	CategoryFood       = "Food & Dining"
	CategoryTransport  = "Transport"
	CategoryHealth     = "Health"
	CategoryBills      = "Bills & Utilities"
	CategoryEducation  = "Education"
	CategoryTransfer   = "Personal Transfer"
	CategoryOther      = "Other"
)

// keywordSet pairs a category with the substrings that select it.
// Matching is case-insensitive and first-match-wins, so the order of
// this table is part of the classification contract.
type keywordSet struct {
	category string
	keywords []string
}

var keywordSets = []keywordSet{
	{CategoryShopping, []string{
		"naivas", "quickmart", "carrefour", "tuskys", "chandarana",
		"supermarket", "mart", "store", "shop", "mall",
	}},
	{CategoryFood, []string{
		"restaurant", "hotel", "cafe", "java", "kfc", "pizza",
		"chicken inn", "butchery", "bakery", "food", "dishes",
	}},
	{CategoryTransport, []string{
		"uber", "bolt", "little cab", "shell", "total energies",
		"rubis", "petrol", "fuel", "matatu", "sacco", "sgr", "bus",
	}},
	{CategoryHealth, []string{
		"hospital", "clinic", "pharmacy", "chemist", "medical",
		"dental", "laborator",
	}},
	{CategoryBills, []string{
		"kplc", "kenya power", "nairobi water", "water", "rent",
		"landlord", "dstv", "gotv", "zuku", "startimes", "internet",
		"wifi", "netflix",
	}},
	{CategoryEducation, []string{
		"school", "college", "university", "academy", "tuition",
		"kasneb", "helb",
	}},
	{CategoryAirtime, []string{
		"safaricom", "airtel", "telkom",
	}},
}

// AllCategories lists every label Categorize can produce.
func AllCategories() []string {
	return []string{
		CategoryIncome, CategoryWithdrawal, CategoryAirtime,
		CategoryShopping, CategoryFood, CategoryTransport,
		CategoryHealth, CategoryBills, CategoryEducation,
		CategoryTransfer, CategoryOther,
	}
}

// ValidCategory reports whether label belongs to the closed vocabulary.
func ValidCategory(label string) bool {
	for _, c := range AllCategories() {
		if strings.EqualFold(strings.TrimSpace(label), c) {
			return true
		}
	}
	return false
}

// Categorize assigns a best-effort spending category from the
// transaction type and counterparty name. Deterministic and total:
// every input maps to a non-empty label. This is an approximation
// layer; misclassifications are expected and can be corrected later.
func Categorize(txType core.TxType, counterparty string) string {
	switch txType {
	case core.TypeReceived:
		return CategoryIncome
	case core.TypeWithdrawal:
		return CategoryWithdrawal
	case core.TypeAirtime:
		return CategoryAirtime
	}

	name := strings.ToLower(strings.TrimSpace(counterparty))
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(name, kw) {
				return set.category
			}
		}
	}

	if looksLikePersonalName(counterparty) {
		return CategoryTransfer
	}
	return CategoryOther
}

// looksLikePersonalName applies a simple heuristic: a sequence of
// capitalized words with no digits, e.g. "JOHN KAMAU" or "Jane Wanjiru".
func looksLikePersonalName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	words := strings.Fields(name)
	for _, w := range words {
		first := []rune(w)[0]
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range w {
			if unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}
