package invoice

import (
	"testing"
	"time"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func TestFiscalYearBoundaryInBusinessZone(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want int
	}{
		{"last evening of march ist", time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC), 2024},
		{"april first ist, still march utc", time.Date(2025, 3, 31, 19, 0, 0, 0, time.UTC), 2025},
		{"december", time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC), 2025},
		{"january", time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), 2025},
	}
	for _, tc := range cases {
		if got := FiscalYear(tc.at, ist); got != tc.want {
			t.Fatalf("%s: FiscalYear=%d want %d", tc.name, got, tc.want)
		}
	}
	if got := FiscalYear(time.Date(2025, 3, 31, 19, 0, 0, 0, time.UTC), nil); got != 2024 {
		t.Fatalf("nil zone should evaluate as given, got %d", got)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber("bdr", 2025, 1); got != "BDR-2025-00001" {
		t.Fatalf("unexpected number %q", got)
	}
	if got := FormatNumber("AND", 2024, 123456); got != "AND-2024-123456" {
		t.Fatalf("sequence beyond five digits must not be truncated, got %q", got)
	}
}
