package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "12.34", want: "12.34"},
		{name: "whole number", in: "100", want: "100"},
		{name: "single fraction digit", in: "0.5", want: "0.5"},
		{name: "sub-cent precision rejected", in: "1.005", wantErr: ErrInvalidAmount},
		{name: "zero rejected", in: "0", wantErr: ErrInvalidAmount},
		{name: "negative rejected", in: "-3.50", wantErr: ErrInvalidAmount},
		{name: "garbage rejected", in: "12,34", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseAmount(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if want, _ := decimal.NewFromString(tt.want); !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestOccurrenceSetDateKeepsYearMonthInSync(t *testing.T) {
	occ := Occurrence{Kind: KindExpense, Name: "Rent", Amount: decimal.NewFromInt(900)}
	occ.SetDate(NewDate(2024, 12, 31))

	if occ.Year != 2024 || occ.Month != 12 {
		t.Fatalf("after SetDate: year/month = %d/%d, want 2024/12", occ.Year, occ.Month)
	}

	occ.SetDate(NewDate(2025, 1, 1))
	if occ.Year != 2025 || occ.Month != 1 {
		t.Fatalf("after move across year boundary: year/month = %d/%d, want 2025/1", occ.Year, occ.Month)
	}
	if err := occ.Validate(); err != nil {
		t.Errorf("moved occurrence should validate, got %v", err)
	}
}

func TestOccurrenceValidateDetectsStaleYearMonth(t *testing.T) {
	occ := Occurrence{Kind: KindIncome, Name: "Salary", Amount: decimal.NewFromInt(1)}
	occ.SetDate(NewDate(2024, 6, 15))
	occ.Month = 5 // simulate a mutation bypassing SetDate

	if err := occ.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Validate() = %v, want ErrInvalidDate", err)
	}
}

func TestISOWeekday(t *testing.T) {
	// 2024-06-03 is a Monday, 2024-06-09 a Sunday.
	if got := NewDate(2024, 6, 3).ISOWeekday(); got != 1 {
		t.Errorf("monday ISOWeekday() = %d, want 1", got)
	}
	if got := NewDate(2024, 6, 9).ISOWeekday(); got != 7 {
		t.Errorf("sunday ISOWeekday() = %d, want 7", got)
	}
}

func TestYearMonthPrevAndDays(t *testing.T) {
	if prev := NewYearMonth(2024, 1).Prev(); prev != NewYearMonth(2023, 12) {
		t.Errorf("Prev() across year = %v, want 2023-12", prev)
	}
	if days := NewYearMonth(2024, 2).Days(); days != 29 {
		t.Errorf("Days() leap February = %d, want 29", days)
	}
	if days := NewYearMonth(2023, 2).Days(); days != 28 {
		t.Errorf("Days() February = %d, want 28", days)
	}
	if last := NewYearMonth(2024, 4).LastDay(); !last.Equal(NewDate(2024, 4, 30)) {
		t.Errorf("LastDay() = %s, want 2024-04-30", last)
	}
}

func TestTemplateValidate(t *testing.T) {
	valid := Template{
		Name:       "Rent",
		Amount:     decimal.RequireFromString("900.00"),
		Recurrence: Monthly{DayOfMonth: 1},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	noRec := valid
	noRec.Recurrence = nil
	if err := noRec.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Errorf("missing recurrence: error = %v, want ErrInvalidRecurrence", err)
	}

	noName := valid
	noName.Name = "  "
	if err := noName.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank name: error = %v, want ErrEmptyName", err)
	}

	badRec := valid
	badRec.Recurrence = Weekly{}
	if err := badRec.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Errorf("weekly without weekday: error = %v, want ErrInvalidRecurrence", err)
	}
}
