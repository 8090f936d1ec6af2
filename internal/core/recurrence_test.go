package core

import (
	"testing"
)

func TestMonthlyDatesIn(t *testing.T) {
	tests := []struct {
		name string
		day  int
		ym   YearMonth
		want []Date
	}{
		{
			name: "plain mid-month day",
			day:  15,
			ym:   NewYearMonth(2024, 3),
			want: []Date{NewDate(2024, 3, 15)},
		},
		{
			name: "day 31 clamps to Feb 29 in leap year",
			day:  31,
			ym:   NewYearMonth(2024, 2),
			want: []Date{NewDate(2024, 2, 29)},
		},
		{
			name: "day 31 clamps to Feb 28 in non-leap year",
			day:  31,
			ym:   NewYearMonth(2023, 2),
			want: []Date{NewDate(2023, 2, 28)},
		},
		{
			name: "day 31 clamps to Apr 30",
			day:  31,
			ym:   NewYearMonth(2024, 4),
			want: []Date{NewDate(2024, 4, 30)},
		},
		{
			name: "zero day produces nothing",
			day:  0,
			ym:   NewYearMonth(2024, 4),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Monthly{DayOfMonth: tt.day}.DatesIn(tt.ym)
			assertDates(t, got, tt.want)
		})
	}
}

func TestWeeklyDatesIn(t *testing.T) {
	tests := []struct {
		name    string
		weekday int
		ym      YearMonth
		want    []Date
	}{
		{
			// May 2024 starts on a Wednesday and has 31 days.
			name:    "mondays of a 31-day month starting on Wednesday",
			weekday: 1,
			ym:      NewYearMonth(2024, 5),
			want: []Date{
				NewDate(2024, 5, 6),
				NewDate(2024, 5, 13),
				NewDate(2024, 5, 20),
				NewDate(2024, 5, 27),
			},
		},
		{
			// Feb 2024 starts on a Thursday; five Thursdays fit in 29 days.
			name:    "five occurrences when weekday matches day one",
			weekday: 4,
			ym:      NewYearMonth(2024, 2),
			want: []Date{
				NewDate(2024, 2, 1),
				NewDate(2024, 2, 8),
				NewDate(2024, 2, 15),
				NewDate(2024, 2, 22),
				NewDate(2024, 2, 29),
			},
		},
		{
			name:    "sunday maps to ISO 7",
			weekday: 7,
			ym:      NewYearMonth(2024, 9),
			want: []Date{
				NewDate(2024, 9, 1),
				NewDate(2024, 9, 8),
				NewDate(2024, 9, 15),
				NewDate(2024, 9, 22),
				NewDate(2024, 9, 29),
			},
		},
		{
			name:    "out of range weekday produces nothing",
			weekday: 0,
			ym:      NewYearMonth(2024, 5),
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weekly{Weekday: tt.weekday}.DatesIn(tt.ym)
			assertDates(t, got, tt.want)
		})
	}
}

func TestBiWeeklyDatesIn(t *testing.T) {
	tests := []struct {
		name   string
		anchor Date
		ym     YearMonth
		want   []Date
	}{
		{
			name:   "anchor inside the month",
			anchor: NewDate(2024, 3, 8),
			ym:     NewYearMonth(2024, 3),
			want:   []Date{NewDate(2024, 3, 8), NewDate(2024, 3, 22)},
		},
		{
			name:   "cadence carries across months from old anchor",
			anchor: NewDate(2024, 1, 5),
			ym:     NewYearMonth(2024, 3),
			// Jan 5 + 14k lands on Mar 1, 15, 29.
			want: []Date{NewDate(2024, 3, 1), NewDate(2024, 3, 15), NewDate(2024, 3, 29)},
		},
		{
			name:   "anchor in the far future yields nothing",
			anchor: NewDate(2025, 6, 1),
			ym:     NewYearMonth(2024, 3),
			want:   nil,
		},
		{
			name:   "zero anchor yields nothing",
			anchor: Date{},
			ym:     NewYearMonth(2024, 3),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BiWeekly{Anchor: tt.anchor}.DatesIn(tt.ym)
			assertDates(t, got, tt.want)
		})
	}
}

// Every bi-weekly date must be anchor+14k for a non-negative k, even when the
// query month is far from the anchor.
func TestBiWeeklyGlobalCadence(t *testing.T) {
	anchor := NewDate(2023, 1, 6)
	rec := BiWeekly{Anchor: anchor}

	for _, ym := range []YearMonth{
		NewYearMonth(2023, 7),
		NewYearMonth(2024, 2),
		NewYearMonth(2025, 12),
	} {
		for _, d := range rec.DatesIn(ym) {
			days := int(d.Sub(anchor.Time).Hours() / 24)
			if days < 0 || days%14 != 0 {
				t.Errorf("%s: date %s is not anchor+14k (offset %d days)", ym, d, days)
			}
		}
	}
}

func TestOneTimeDatesIn(t *testing.T) {
	if got := (OneTime{}).DatesIn(NewYearMonth(2024, 5)); len(got) != 0 {
		t.Errorf("OneTime.DatesIn() = %v, want no dates", got)
	}
}

func TestRecurrenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Recurrence
		wantErr bool
	}{
		{name: "valid monthly", rec: Monthly{DayOfMonth: 31}, wantErr: false},
		{name: "monthly day zero", rec: Monthly{}, wantErr: true},
		{name: "monthly day 32", rec: Monthly{DayOfMonth: 32}, wantErr: true},
		{name: "valid weekly", rec: Weekly{Weekday: 7}, wantErr: false},
		{name: "weekly weekday missing", rec: Weekly{}, wantErr: true},
		{name: "valid biweekly", rec: BiWeekly{Anchor: NewDate(2024, 1, 1)}, wantErr: false},
		{name: "biweekly missing anchor", rec: BiWeekly{}, wantErr: true},
		{name: "one time always valid", rec: OneTime{}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func assertDates(t *testing.T, got, want []Date) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d dates %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
