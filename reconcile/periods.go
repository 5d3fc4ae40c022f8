package reconcile

import (
	"fmt"
	"time"
)

// Period is one (year, month) reconciliation unit.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PlanPeriods returns the ordered, deduplicated list of periods to
// reconcile for the given instant: the current month and the immediately
// preceding month, plus December of the previous year when the current
// month is January. Older periods are assumed already reconciled.
func PlanPeriods(now time.Time) []Period {
	current := Period{Year: now.Year(), Month: now.Month()}
	prev := now.AddDate(0, -1, -now.Day()+1)
	previous := Period{Year: prev.Year(), Month: prev.Month()}

	periods := []Period{current, previous}
	if current.Month == time.January {
		periods = append(periods, Period{Year: current.Year - 1, Month: time.December})
	}

	seen := make(map[Period]bool, len(periods))
	out := periods[:0]
	for _, p := range periods {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
