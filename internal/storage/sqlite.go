package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"budgetcal/internal/core"
)

const dateLayout = "2006-01-02"

// SQLiteRepository implements the template, occurrence and account stores on
// a single SQLite database. Monetary amounts are stored as fixed-point
// decimal strings and calendar dates as YYYY-MM-DD text, so no float ever
// touches a stored value.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- templates ---

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t *core.Template) error {
	day, weekday, anchor := recurrenceColumns(t.Recurrence)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO templates (owner_id, name, amount, recurrence_kind, day_of_month, day_of_week, biweekly_anchor, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.Name, t.Amount.StringFixed(2), string(t.Recurrence.Kind()),
		day, weekday, anchor, boolToInt(t.Active))
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("template insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Template saved",
		"id", t.ID,
		"name", t.Name,
		"recurrence", string(t.Recurrence.Kind()))
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, ownerID string, id int64) (*core.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, amount, recurrence_kind, day_of_month, day_of_week, biweekly_anchor, active
		FROM templates WHERE owner_id = ? AND id = ?`, ownerID, id)

	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context, ownerID string) ([]*core.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, amount, recurrence_kind, day_of_month, day_of_week, biweekly_anchor, active
		FROM templates WHERE owner_id = ? AND active = 1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var templates []*core.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t *core.Template) error {
	day, weekday, anchor := recurrenceColumns(t.Recurrence)

	res, err := r.db.ExecContext(ctx, `
		UPDATE templates
		SET name = ?, amount = ?, recurrence_kind = ?, day_of_month = ?, day_of_week = ?, biweekly_anchor = ?, active = ?
		WHERE owner_id = ? AND id = ?`,
		t.Name, t.Amount.StringFixed(2), string(t.Recurrence.Kind()),
		day, weekday, anchor, boolToInt(t.Active), t.OwnerID, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res, t.ID)
}

// --- occurrences ---

func (r *SQLiteRepository) CreateOccurrence(ctx context.Context, o *core.Occurrence) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO occurrences (owner_id, kind, name, amount, scheduled_date, year, month, template_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OwnerID, string(o.Kind), o.Name, o.Amount.StringFixed(2),
		o.Date.Format(dateLayout), o.Year, o.Month, templateIDValue(o.TemplateID))
	if err != nil {
		return fmt.Errorf("insert occurrence: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("occurrence insert id: %w", err)
	}
	o.ID = id
	return nil
}

// CreateOccurrenceIfAbsent relies on the partial unique index over
// (owner_id, template_id, scheduled_date): the conflict clause makes the
// existence check and the insert a single atomic statement, so concurrent
// materialization of the same month cannot double-insert.
func (r *SQLiteRepository) CreateOccurrenceIfAbsent(ctx context.Context, o *core.Occurrence) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO occurrences (owner_id, kind, name, amount, scheduled_date, year, month, template_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, template_id, scheduled_date) WHERE template_id IS NOT NULL DO NOTHING`,
		o.OwnerID, string(o.Kind), o.Name, o.Amount.StringFixed(2),
		o.Date.Format(dateLayout), o.Year, o.Month, templateIDValue(o.TemplateID))
	if err != nil {
		return false, fmt.Errorf("insert occurrence if absent: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("occurrence rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("occurrence insert id: %w", err)
	}
	o.ID = id
	return true, nil
}

func (r *SQLiteRepository) GetOccurrence(ctx context.Context, ownerID string, id int64) (*core.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, name, amount, scheduled_date, year, month, template_id
		FROM occurrences WHERE owner_id = ? AND id = ?`, ownerID, id)

	o, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("occurrence %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListMonthOccurrences(ctx context.Context, ownerID string, kind core.OccurrenceKind, ym core.YearMonth) ([]*core.Occurrence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, name, amount, scheduled_date, year, month, template_id
		FROM occurrences
		WHERE owner_id = ? AND kind = ? AND year = ? AND month = ?
		ORDER BY scheduled_date, id`, ownerID, string(kind), ym.Year, ym.Month)
	if err != nil {
		return nil, fmt.Errorf("list month occurrences: %w", err)
	}
	defer rows.Close()

	return collectOccurrences(rows)
}

func (r *SQLiteRepository) ListTemplateOccurrences(ctx context.Context, ownerID string, templateID int64) ([]*core.Occurrence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, name, amount, scheduled_date, year, month, template_id
		FROM occurrences
		WHERE owner_id = ? AND template_id = ?
		ORDER BY scheduled_date, id`, ownerID, templateID)
	if err != nil {
		return nil, fmt.Errorf("list template occurrences: %w", err)
	}
	defer rows.Close()

	return collectOccurrences(rows)
}

func (r *SQLiteRepository) UpdateOccurrence(ctx context.Context, o *core.Occurrence) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE occurrences
		SET name = ?, amount = ?, scheduled_date = ?, year = ?, month = ?
		WHERE owner_id = ? AND id = ?`,
		o.Name, o.Amount.StringFixed(2), o.Date.Format(dateLayout), o.Year, o.Month,
		o.OwnerID, o.ID)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}
	return requireRow(res, o.ID)
}

func (r *SQLiteRepository) DeleteOccurrence(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM occurrences WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}
	return requireRow(res, id)
}

func (r *SQLiteRepository) DeleteTemplateOccurrencesFrom(ctx context.Context, ownerID string, templateID int64, from core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM occurrences
		WHERE owner_id = ? AND template_id = ? AND scheduled_date >= ?`,
		ownerID, templateID, from.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("delete template occurrences: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) HasOccurrencesIn(ctx context.Context, ownerID string, ym core.YearMonth) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM occurrences WHERE owner_id = ? AND year = ? AND month = ?
		)`, ownerID, ym.Year, ym.Month).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check month occurrences: %w", err)
	}
	return exists == 1, nil
}

// --- accounts ---

func (r *SQLiteRepository) GetOrCreateAccount(ctx context.Context, ownerID string) (*core.Account, error) {
	// The unique index on owner_id makes the insert a no-op when the account
	// already exists, so concurrent first touches converge on one row.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (owner_id) VALUES (?)
		ON CONFLICT (owner_id) DO NOTHING`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}

	var (
		a          core.Account
		balanceStr string
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, starting_balance FROM accounts WHERE owner_id = ?`,
		ownerID).Scan(&a.ID, &a.OwnerID, &a.Name, &balanceStr)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	a.StartingBalance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parse starting balance %q: %w", balanceStr, err)
	}
	return &a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a *core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, starting_balance = ? WHERE owner_id = ? AND id = ?`,
		a.Name, a.StartingBalance.StringFixed(2), a.OwnerID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res, a.ID)
}

// --- row mapping ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*core.Template, error) {
	var (
		t         core.Template
		amountStr string
		kind      string
		day       sql.NullInt64
		weekday   sql.NullInt64
		anchor    sql.NullString
		active    int
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &amountStr, &kind, &day, &weekday, &anchor, &active); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	t.Amount = amount
	t.Active = active == 1

	t.Recurrence, err = recurrenceFromColumns(core.RecurrenceKind(kind), day, weekday, anchor)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanOccurrence(row rowScanner) (*core.Occurrence, error) {
	var (
		o          core.Occurrence
		kind       string
		amountStr  string
		dateStr    string
		templateID sql.NullInt64
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &kind, &o.Name, &amountStr, &dateStr, &o.Year, &o.Month, &templateID); err != nil {
		return nil, err
	}

	o.Kind = core.OccurrenceKind(kind)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	o.Amount = amount

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	o.Date = date

	if templateID.Valid {
		id := templateID.Int64
		o.TemplateID = &id
	}
	return &o, nil
}

func collectOccurrences(rows *sql.Rows) ([]*core.Occurrence, error) {
	var occurrences []*core.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	return occurrences, rows.Err()
}

// recurrenceColumns flattens a recurrence variant into the nullable columns
// of the templates table.
func recurrenceColumns(rec core.Recurrence) (day, weekday, anchor any) {
	switch v := rec.(type) {
	case core.Monthly:
		return v.DayOfMonth, nil, nil
	case core.Weekly:
		return nil, v.Weekday, nil
	case core.BiWeekly:
		return nil, nil, v.Anchor.Format(dateLayout)
	default:
		return nil, nil, nil
	}
}

// recurrenceFromColumns rebuilds the variant from a stored row. A NULL in the
// column the kind requires is an error.
func recurrenceFromColumns(kind core.RecurrenceKind, day, weekday sql.NullInt64, anchor sql.NullString) (core.Recurrence, error) {
	switch kind {
	case core.RecurMonthly:
		if !day.Valid {
			return nil, fmt.Errorf("%w: monthly template without day_of_month", core.ErrInvalidRecurrence)
		}
		return core.Monthly{DayOfMonth: int(day.Int64)}, nil
	case core.RecurWeekly:
		if !weekday.Valid {
			return nil, fmt.Errorf("%w: weekly template without day_of_week", core.ErrInvalidRecurrence)
		}
		return core.Weekly{Weekday: int(weekday.Int64)}, nil
	case core.RecurBiWeekly:
		if !anchor.Valid {
			return nil, fmt.Errorf("%w: biweekly template without anchor", core.ErrInvalidRecurrence)
		}
		date, err := core.ParseDate(anchor.String)
		if err != nil {
			return nil, err
		}
		return core.BiWeekly{Anchor: date}, nil
	case core.RecurOneTime:
		return core.OneTime{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown recurrence kind %q", core.ErrInvalidRecurrence, kind)
	}
}

func templateIDValue(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("id %d: %w", id, core.ErrNotFound)
	}
	return nil
}
