// Package biztime computes billing-period boundaries. All values are UTC.
package biztime

import "time"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfMonthUTC returns 00:00:00 on the first day of t's month.
func StartOfMonthUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonthUTC returns the last nanosecond of t's month.
func EndOfMonthUTC(t time.Time) time.Time {
	return StartOfMonthUTC(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Period is an inclusive time window.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// MonthPeriod returns the calendar month containing t.
func MonthPeriod(t time.Time) Period {
	return Period{Start: StartOfMonthUTC(t), End: EndOfMonthUTC(t)}
}

// BillingPeriod prefers the provider-reported period when it brackets now,
// falling back to the calendar month.
func BillingPeriod(now time.Time, start, end *time.Time) Period {
	if start != nil && end != nil {
		p := Period{Start: start.UTC(), End: end.UTC()}
		if p.Contains(now.UTC()) {
			return p
		}
	}
	return MonthPeriod(now)
}
