package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense OccurrenceKind = "expense"
	KindIncome  OccurrenceKind = "income"
)

type (
	// OccurrenceKind distinguishes money leaving the account from money entering it.
	OccurrenceKind string

	// Date is a calendar date without time-of-day or timezone.
	Date struct {
		time.Time
	}

	// YearMonth identifies one calendar month.
	YearMonth struct {
		Year  int
		Month int // 1-12
	}

	// Template is a recurring-expense definition that expands into concrete
	// occurrences for a given month. The recurrence variant carries exactly the
	// parameters its kind needs.
	Template struct {
		ID         int64
		OwnerID    string
		Name       string
		Amount     decimal.Decimal
		Recurrence Recurrence
		Active     bool
	}

	// Occurrence is a single expense or income entry attached to one calendar
	// date. Year and Month are denormalized from Date for range queries and are
	// re-derived on every date change. TemplateID is nil for manually created
	// one-time entries.
	Occurrence struct {
		ID         int64
		OwnerID    string
		Kind       OccurrenceKind
		Name       string
		Amount     decimal.Decimal
		Date       Date
		Year       int
		Month      int
		TemplateID *int64
	}

	// Account holds the starting balance the ledger bottoms out on. One per
	// owner; lazily created with a zero balance.
	Account struct {
		ID              int64
		OwnerID         string
		Name            string
		StartingBalance decimal.Decimal
	}

	// DailyBalance is one entry of a month's running-balance sequence.
	DailyBalance struct {
		Date    Date
		Balance decimal.Decimal
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecurrence = errors.New("invalid recurrence parameters")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyName         = errors.New("empty name")
)

// NewDate creates a Date from year, month, day. Out-of-range values are
// normalized by time.Date.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether two dates name the same day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// ISOWeekday returns the weekday with Monday=1 through Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// YearMonthOf returns the month the date falls in.
func (d Date) YearMonthOf() YearMonth {
	return YearMonth{Year: d.Time.Year(), Month: int(d.Time.Month())}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// NewYearMonth builds a YearMonth without range checking; Validate catches
// out-of-range months at the boundary.
func NewYearMonth(year, month int) YearMonth {
	return YearMonth{Year: year, Month: month}
}

func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, ym.Month)
	}
	if ym.Year < 1 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, ym.Year)
	}
	return nil
}

// FirstDay returns day 1 of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// LastDay returns the final calendar day of the month.
func (ym YearMonth) LastDay() Date {
	// Day zero of the next month is the last day of this one.
	return Date{Time: time.Date(ym.Year, time.Month(ym.Month)+1, 0, 0, 0, 0, 0, time.UTC)}
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return ym.LastDay().Day()
}

// Prev returns the immediately preceding month.
func (ym YearMonth) Prev() YearMonth {
	if ym.Month == 1 {
		return YearMonth{Year: ym.Year - 1, Month: 12}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// ParseAmount parses a monetary amount, requiring at most two fraction digits
// and a strictly positive value.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects non-positive amounts and amounts with sub-cent
// precision.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidAmount, d)
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("%w: more than two fraction digits in %s", ErrInvalidAmount, d)
	}
	return nil
}

// SetDate moves the occurrence to a new date and re-derives the denormalized
// year and month. All date mutations must go through here.
func (o *Occurrence) SetDate(d Date) {
	o.Date = d
	o.Year = d.Time.Year()
	o.Month = int(d.Time.Month())
}

func (o Occurrence) Validate() error {
	if o.Kind != KindExpense && o.Kind != KindIncome {
		return fmt.Errorf("unknown occurrence kind %q", o.Kind)
	}
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := o.Date.Validate(); err != nil {
		return err
	}
	if o.Year != o.Date.Time.Year() || o.Month != int(o.Date.Time.Month()) {
		return fmt.Errorf("%w: year/month out of sync with date %s", ErrInvalidDate, o.Date)
	}
	return ValidateAmount(o.Amount)
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Recurrence == nil {
		return fmt.Errorf("%w: missing recurrence", ErrInvalidRecurrence)
	}
	return t.Recurrence.Validate()
}
