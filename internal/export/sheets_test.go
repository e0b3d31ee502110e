package export

import (
	"testing"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
)

func TestReportRow(t *testing.T) {
	stats := core.MonthlyStats{
		Year:          2024,
		Month:         time.January,
		TotalSpent:    core.Money{Cents: 190000},
		TotalReceived: core.Money{Cents: 250000},
		NetFlow:       core.Money{Cents: 60000},
		Count:         5,
		ByCategory: map[string]core.Money{
			"Shopping":          {Cents: 80000},
			"Personal Transfer": {Cents: 100000},
			"Airtime":           {Cents: 10000},
		},
	}

	row := reportRow(stats)
	if len(row) != 7 {
		t.Fatalf("row length = %d, want 7", len(row))
	}
	if row[0] != 2024 || row[1] != 1 {
		t.Errorf("year/month = %v/%v, want 2024/1", row[0], row[1])
	}
	if row[2] != 1900.0 || row[3] != 2500.0 || row[4] != 600.0 {
		t.Errorf("amounts = %v/%v/%v, want 1900/2500/600", row[2], row[3], row[4])
	}
	if row[5] != 5 {
		t.Errorf("count = %v, want 5", row[5])
	}
	if row[6] != "Personal Transfer" {
		t.Errorf("top category = %v, want Personal Transfer", row[6])
	}
}

func TestReportRow_NoSpend(t *testing.T) {
	row := reportRow(core.MonthlyStats{Year: 2024, Month: time.June})
	if row[6] != "" {
		t.Errorf("top category = %v, want empty for a month without spend", row[6])
	}
}
