package core

import "fmt"

const (
	RecurMonthly  RecurrenceKind = "monthly"
	RecurWeekly   RecurrenceKind = "weekly"
	RecurBiWeekly RecurrenceKind = "biweekly"
	RecurOneTime  RecurrenceKind = "one_time"
)

// RecurrenceKind names a recurrence variant for storage and transport.
type RecurrenceKind string

// Recurrence is the closed set of recurrence variants. Each variant carries
// only the parameters its kind needs, so "which fields matter" is enforced by
// the type, not by convention. DatesIn is a pure function of the variant and
// the month: no I/O, no clock.
type Recurrence interface {
	Kind() RecurrenceKind
	DatesIn(ym YearMonth) []Date
	Validate() error
}

// Monthly fires once per month on a fixed day.
type Monthly struct {
	DayOfMonth int // 1-31
}

func (Monthly) Kind() RecurrenceKind { return RecurMonthly }

// DatesIn returns the single date (year, month, day). A day beyond the
// month's end clamps to the last valid day, so a day-31 rent template still
// fires on Feb 28.
func (m Monthly) DatesIn(ym YearMonth) []Date {
	day := m.DayOfMonth
	if day < 1 {
		return nil
	}
	if last := ym.Days(); day > last {
		day = last
	}
	return []Date{NewDate(ym.Year, ym.Month, day)}
}

func (m Monthly) Validate() error {
	if m.DayOfMonth < 1 || m.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d out of range 1-31", ErrInvalidRecurrence, m.DayOfMonth)
	}
	return nil
}

// Weekly fires on every matching weekday of the month.
type Weekly struct {
	Weekday int // ISO: 1=Monday .. 7=Sunday
}

func (Weekly) Kind() RecurrenceKind { return RecurWeekly }

// DatesIn walks forward from day 1 to the first matching weekday, then steps
// by seven days until past the month's end. A weekday that never aligns
// within the month yields no dates.
func (w Weekly) DatesIn(ym YearMonth) []Date {
	if w.Weekday < 1 || w.Weekday > 7 {
		return nil
	}
	end := ym.LastDay()
	cur := ym.FirstDay()
	for cur.ISOWeekday() != w.Weekday {
		cur = cur.AddDays(1)
		if cur.After(end) {
			return nil
		}
	}
	var dates []Date
	for !cur.After(end) {
		dates = append(dates, cur)
		cur = cur.AddDays(7)
	}
	return dates
}

func (w Weekly) Validate() error {
	if w.Weekday < 1 || w.Weekday > 7 {
		return fmt.Errorf("%w: weekday %d out of range 1-7", ErrInvalidRecurrence, w.Weekday)
	}
	return nil
}

// BiWeekly fires every 14 days on a cadence anchored to a fixed start date.
type BiWeekly struct {
	Anchor Date
}

func (BiWeekly) Kind() RecurrenceKind { return RecurBiWeekly }

// DatesIn steps from the anchor in 14-day increments up to the month, then
// collects every step inside it. The cadence is global: every produced date
// is anchor+14k, never recomputed from the month start. An anchor beyond the
// month yields no dates.
func (b BiWeekly) DatesIn(ym YearMonth) []Date {
	if b.Anchor.IsZero() {
		return nil
	}
	start := ym.FirstDay()
	end := ym.LastDay()
	cur := b.Anchor
	for cur.Before(start) {
		cur = cur.AddDays(14)
	}
	var dates []Date
	for !cur.After(end) {
		dates = append(dates, cur)
		cur = cur.AddDays(14)
	}
	return dates
}

func (b BiWeekly) Validate() error {
	if b.Anchor.IsZero() {
		return fmt.Errorf("%w: missing bi-weekly anchor date", ErrInvalidRecurrence)
	}
	return nil
}

// OneTime never expands; one-time entries are created directly on the
// calendar, not generated.
type OneTime struct{}

func (OneTime) Kind() RecurrenceKind     { return RecurOneTime }
func (OneTime) DatesIn(YearMonth) []Date { return nil }
func (OneTime) Validate() error          { return nil }
