package invoice

import (
	"fmt"
	"strings"
	"time"
)

// FiscalYearStart is the first month of the Indian financial year.
const FiscalYearStart = time.April

// FiscalYear returns the calendar year in which the April-March fiscal year
// containing t started, evaluated in loc.
func FiscalYear(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	if t.Month() < FiscalYearStart {
		return t.Year() - 1
	}
	return t.Year()
}

// FormatNumber renders "<PFX>-<FY>-<00001>".
func FormatNumber(prefix string, fiscalYear int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", strings.ToUpper(strings.TrimSpace(prefix)), fiscalYear, seq)
}
