package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

func newSQLiteTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteCreateOccurrenceIfAbsent(t *testing.T) {
	repo := newSQLiteTestRepo(t)
	ctx := context.Background()
	owner := "owner-1"

	tmpl := &core.Template{
		OwnerID:    owner,
		Name:       "Rent",
		Amount:     decimal.RequireFromString("900.00"),
		Recurrence: core.Monthly{DayOfMonth: 1},
		Active:     true,
	}
	if err := repo.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	date := core.NewDate(2024, 6, 1)
	first := newTestOccurrence(owner, &tmpl.ID, date)
	created, err := repo.CreateOccurrenceIfAbsent(ctx, first)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !created || first.ID == 0 {
		t.Fatalf("first insert created=%v id=%d, want created with assigned id", created, first.ID)
	}

	created, err = repo.CreateOccurrenceIfAbsent(ctx, newTestOccurrence(owner, &tmpl.ID, date))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if created {
		t.Errorf("duplicate (owner, template, date) insert reported created")
	}

	// Manual entries carry no template and are exempt from the index.
	for i := 0; i < 2; i++ {
		created, err = repo.CreateOccurrenceIfAbsent(ctx, newTestOccurrence(owner, nil, date))
		if err != nil {
			t.Fatalf("manual insert %d: %v", i, err)
		}
		if !created {
			t.Errorf("manual insert %d blocked by idempotency index", i)
		}
	}

	got, err := repo.ListMonthOccurrences(ctx, owner, core.KindExpense, core.NewYearMonth(2024, 6))
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("stored occurrences = %d, want 3 (one templated, two manual)", len(got))
	}
}

func TestSQLiteTemplateRoundTrip(t *testing.T) {
	repo := newSQLiteTestRepo(t)
	ctx := context.Background()

	tmpl := &core.Template{
		OwnerID:    "owner-1",
		Name:       "Paycheck cycle",
		Amount:     decimal.RequireFromString("2000.00"),
		Recurrence: core.BiWeekly{Anchor: core.NewDate(2024, 1, 5)},
		Active:     true,
	}
	if err := repo.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetTemplate(ctx, "owner-1", tmpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Recurrence != (core.BiWeekly{Anchor: core.NewDate(2024, 1, 5)}) {
		t.Errorf("recurrence = %#v, want biweekly with original anchor", got.Recurrence)
	}
	if !got.Amount.Equal(tmpl.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, tmpl.Amount)
	}
}

func TestRecurrenceFromColumns(t *testing.T) {
	tests := []struct {
		name    string
		kind    core.RecurrenceKind
		day     sql.NullInt64
		weekday sql.NullInt64
		anchor  sql.NullString
		want    core.Recurrence
		wantErr bool
	}{
		{
			name: "monthly",
			kind: core.RecurMonthly,
			day:  sql.NullInt64{Int64: 28, Valid: true},
			want: core.Monthly{DayOfMonth: 28},
		},
		{
			name:    "weekly",
			kind:    core.RecurWeekly,
			weekday: sql.NullInt64{Int64: 5, Valid: true},
			want:    core.Weekly{Weekday: 5},
		},
		{
			name:   "biweekly",
			kind:   core.RecurBiWeekly,
			anchor: sql.NullString{String: "2024-01-05", Valid: true},
			want:   core.BiWeekly{Anchor: core.NewDate(2024, 1, 5)},
		},
		{
			name: "one time needs no parameters",
			kind: core.RecurOneTime,
			want: core.OneTime{},
		},
		{
			name:    "monthly with null day",
			kind:    core.RecurMonthly,
			wantErr: true,
		},
		{
			name:    "weekly with null weekday",
			kind:    core.RecurWeekly,
			wantErr: true,
		},
		{
			name:    "biweekly with null anchor",
			kind:    core.RecurBiWeekly,
			wantErr: true,
		},
		{
			name:    "biweekly with malformed anchor",
			kind:    core.RecurBiWeekly,
			anchor:  sql.NullString{String: "05/01/2024", Valid: true},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			kind:    core.RecurrenceKind("yearly"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recurrenceFromColumns(tt.kind, tt.day, tt.weekday, tt.anchor)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("got %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRecurrenceColumnsOnlyKindParameter(t *testing.T) {
	day, weekday, anchor := recurrenceColumns(core.Monthly{DayOfMonth: 15})
	if day != 15 || weekday != nil || anchor != nil {
		t.Errorf("monthly columns = (%v, %v, %v)", day, weekday, anchor)
	}

	day, weekday, anchor = recurrenceColumns(core.BiWeekly{Anchor: core.NewDate(2024, 1, 5)})
	if day != nil || weekday != nil || anchor != "2024-01-05" {
		t.Errorf("biweekly columns = (%v, %v, %v)", day, weekday, anchor)
	}

	day, weekday, anchor = recurrenceColumns(core.OneTime{})
	if day != nil || weekday != nil || anchor != nil {
		t.Errorf("one-time columns = (%v, %v, %v)", day, weekday, anchor)
	}
}

func TestRequireRowErrors(t *testing.T) {
	if err := requireRow(fakeResult(0), 9); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("zero rows: %v, want ErrNotFound", err)
	}
	if err := requireRow(fakeResult(1), 9); err != nil {
		t.Errorf("one row: %v, want nil", err)
	}
}

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }
