package parser

import (
	"testing"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
)

func TestCategorize_TypeDriven(t *testing.T) {
	// Type wins over any counterparty keywords.
	if got := Categorize(core.TypeReceived, "NAIVAS SUPERMARKET"); got != CategoryIncome {
		t.Errorf("received = %q, want %q", got, CategoryIncome)
	}
	if got := Categorize(core.TypeWithdrawal, "AGENT 123"); got != CategoryWithdrawal {
		t.Errorf("withdrawal = %q, want %q", got, CategoryWithdrawal)
	}
	if got := Categorize(core.TypeAirtime, ""); got != CategoryAirtime {
		t.Errorf("airtime = %q, want %q", got, CategoryAirtime)
	}
}

func TestCategorize_Keywords(t *testing.T) {
	tests := []struct {
		counterparty string
		want         string
	}{
		{"NAIVAS SUPERMARKET", CategoryShopping},
		{"Quickmart Ltd", CategoryShopping},
		{"JAVA HOUSE WESTLANDS", CategoryFood},
		{"KFC MOI AVENUE", CategoryFood},
		{"UBER BV", CategoryTransport},
		{"SHELL PETROL STATION", CategoryTransport},
		{"AGA KHAN HOSPITAL", CategoryHealth},
		{"GOODLIFE PHARMACY", CategoryHealth},
		{"KPLC PREPAID", CategoryBills},
		{"ZUKU FIBER", CategoryBills},
		{"STRATHMORE UNIVERSITY", CategoryEducation},
		{"BRIGHT FUTURE ACADEMY", CategoryEducation},
		{"SAFARICOM LTD", CategoryAirtime},
	}
	for _, tt := range tests {
		t.Run(tt.counterparty, func(t *testing.T) {
			if got := Categorize(core.TypePayment, tt.counterparty); got != tt.want {
				t.Errorf("Categorize(payment, %q) = %q, want %q", tt.counterparty, got, tt.want)
			}
		})
	}
}

func TestCategorize_KeywordPriority(t *testing.T) {
	// "HOTEL" appears in the food set; a name also containing a
	// shopping keyword resolves to the earlier category in the table.
	if got := Categorize(core.TypePayment, "MALL HOTEL"); got != CategoryShopping {
		t.Errorf("Categorize = %q, want %q (first matching set wins)", got, CategoryShopping)
	}
}

func TestCategorize_PersonalNameHeuristic(t *testing.T) {
	tests := []struct {
		counterparty string
		want         string
	}{
		{"JOHN KAMAU", CategoryTransfer},
		{"Jane Wanjiru", CategoryTransfer},
		{"JOHN KAMAU 0722000000", CategoryOther}, // digits disqualify
		{"lowercase vendor", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		name := tt.counterparty
		if name == "" {
			name = "(empty)"
		}
		t.Run(name, func(t *testing.T) {
			if got := Categorize(core.TypeSent, tt.counterparty); got != tt.want {
				t.Errorf("Categorize(sent, %q) = %q, want %q", tt.counterparty, got, tt.want)
			}
		})
	}
}

func TestCategorize_AlwaysInVocabulary(t *testing.T) {
	inputs := []string{"JOHN KAMAU", "NAIVAS", "???", "", "x1y2z3", "ACME LTD"}
	types := []core.TxType{
		core.TypeSent, core.TypeReceived, core.TypePayment,
		core.TypeWithdrawal, core.TypeAirtime, core.TypeUnknown,
	}
	for _, typ := range types {
		for _, in := range inputs {
			got := Categorize(typ, in)
			if got == "" {
				t.Fatalf("Categorize(%s, %q) returned empty label", typ, in)
			}
			if !ValidCategory(got) {
				t.Errorf("Categorize(%s, %q) = %q, not in vocabulary", typ, in, got)
			}
		}
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range AllCategories() {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false", c)
		}
	}
	if !ValidCategory("  shopping ") {
		t.Error("ValidCategory should be case-insensitive and trim spaces")
	}
	if ValidCategory("Gambling") {
		t.Error("ValidCategory accepted a label outside the vocabulary")
	}
}
