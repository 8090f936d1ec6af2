package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgetcal/internal/core"
)

// BudgetService materializes recurring templates into calendar occurrences
// and computes day-by-day running balances. It is stateless; every call works
// entirely from the stores it is handed.
type BudgetService struct {
	store  Store
	events EventPublisher
}

// MonthView is the full payload for one calendar month.
type MonthView struct {
	Expenses      []*core.Occurrence
	Income        []*core.Occurrence
	DailyBalances []core.DailyBalance
}

func NewBudgetService(store Store, events EventPublisher) *BudgetService {
	return &BudgetService{
		store:  store,
		events: events,
	}
}

// MaterializeMonth expands every active template owned by ownerID into its
// dates for the month and inserts any occurrence not already present for that
// (template, date) pair. Idempotent: re-running for the same month creates
// nothing new. Individual template failures are logged and skipped so one bad
// row cannot block the rest of the calendar.
func (s *BudgetService) MaterializeMonth(ctx context.Context, ownerID string, ym core.YearMonth) (int, error) {
	if err := ym.Validate(); err != nil {
		return 0, err
	}

	templates, err := s.store.ListActiveTemplates(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	created := 0
	for _, t := range templates {
		for _, date := range t.Recurrence.DatesIn(ym) {
			templateID := t.ID
			occ := &core.Occurrence{
				OwnerID:    ownerID,
				Kind:       core.KindExpense,
				Name:       t.Name,
				Amount:     t.Amount,
				TemplateID: &templateID,
			}
			occ.SetDate(date)

			inserted, err := s.store.CreateOccurrenceIfAbsent(ctx, occ)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to materialize occurrence",
					"template_id", t.ID,
					"date", date.String(),
					"error", err)
				continue
			}
			if inserted {
				created++
			}
		}
	}

	if created > 0 {
		slog.InfoContext(ctx, "Materialized recurring occurrences",
			"month", ym.String(),
			"templates", len(templates),
			"created", created)
		s.publishMonthChanged(ctx, ownerID, ym)
	}

	return created, nil
}

// MaterializeAndListMonth materializes the month and returns its expenses,
// income and daily balances. Expense and income loads run concurrently; the
// balance fold reuses both lists.
func (s *BudgetService) MaterializeAndListMonth(ctx context.Context, ownerID string, ym core.YearMonth) (*MonthView, error) {
	if _, err := s.MaterializeMonth(ctx, ownerID, ym); err != nil {
		return nil, err
	}

	var expenses, income []*core.Occurrence
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListMonthOccurrences(gctx, ownerID, core.KindExpense, ym)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.store.ListMonthOccurrences(gctx, ownerID, core.KindIncome, ym)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list month occurrences: %w", err)
	}

	opening, err := s.openingBalance(ctx, ownerID, ym)
	if err != nil {
		return nil, err
	}

	return &MonthView{
		Expenses:      expenses,
		Income:        income,
		DailyBalances: foldDailyBalances(ym, opening, income, expenses),
	}, nil
}

// DailyBalances returns the running balance for every day of the month in
// order. The opening balance chains recursively through prior months down to
// the account's starting balance; results are recomputed on every call.
func (s *BudgetService) DailyBalances(ctx context.Context, ownerID string, ym core.YearMonth) ([]core.DailyBalance, error) {
	if err := ym.Validate(); err != nil {
		return nil, err
	}

	opening, err := s.openingBalance(ctx, ownerID, ym)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListMonthOccurrences(ctx, ownerID, core.KindExpense, ym)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	income, err := s.store.ListMonthOccurrences(ctx, ownerID, core.KindIncome, ym)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}

	return foldDailyBalances(ym, opening, income, expenses), nil
}

// openingBalance resolves the balance in effect at the start of day 1.
// Absence of prior data is the base case, never an error: the first month
// with any occurrence opens at the account's starting balance.
func (s *BudgetService) openingBalance(ctx context.Context, ownerID string, ym core.YearMonth) (balance decimal.Decimal, err error) {
	prev := ym.Prev()

	hasPrior, err := s.store.HasOccurrencesIn(ctx, ownerID, prev)
	if err != nil {
		return balance, fmt.Errorf("check prior month: %w", err)
	}

	if !hasPrior {
		account, err := s.store.GetOrCreateAccount(ctx, ownerID)
		if err != nil {
			return balance, fmt.Errorf("load account: %w", err)
		}
		return account.StartingBalance, nil
	}

	// Each step moves one month earlier and the base case floors the chain,
	// so the recursion terminates at the earliest month with data.
	prevBalances, err := s.DailyBalances(ctx, ownerID, prev)
	if err != nil {
		return balance, err
	}
	return prevBalances[len(prevBalances)-1].Balance, nil
}

// MoveOccurrence re-dates an occurrence, re-deriving its denormalized year
// and month, and announces both the origin and destination months so cached
// ledgers for either can be dropped.
func (s *BudgetService) MoveOccurrence(ctx context.Context, ownerID string, id int64, newDate core.Date) (*core.Occurrence, error) {
	if err := newDate.Validate(); err != nil {
		return nil, err
	}

	occ, err := s.store.GetOccurrence(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	origin := occ.Date.YearMonthOf()
	occ.SetDate(newDate)

	if err := s.store.UpdateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("move occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Occurrence moved",
		"id", occ.ID,
		"kind", string(occ.Kind),
		"from", origin.String(),
		"to", newDate.String())

	s.publishMonthChanged(ctx, ownerID, origin)
	if dest := newDate.YearMonthOf(); dest != origin {
		s.publishMonthChanged(ctx, ownerID, dest)
	}

	return occ, nil
}

// CreateOccurrenceFromTemplate drops a single instance of a template onto an
// arbitrary date, copying the template's current name and amount. Unlike
// materialization this is a direct user action and always inserts.
func (s *BudgetService) CreateOccurrenceFromTemplate(ctx context.Context, ownerID string, templateID int64, date core.Date) (*core.Occurrence, error) {
	if err := date.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.GetTemplate(ctx, ownerID, templateID)
	if err != nil {
		return nil, err
	}

	occ := &core.Occurrence{
		OwnerID:    ownerID,
		Kind:       core.KindExpense,
		Name:       t.Name,
		Amount:     t.Amount,
		TemplateID: &t.ID,
	}
	occ.SetDate(date)

	if err := s.store.CreateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("create occurrence from template: %w", err)
	}

	s.publishMonthChanged(ctx, ownerID, date.YearMonthOf())
	return occ, nil
}

func (s *BudgetService) publishMonthChanged(ctx context.Context, ownerID string, ym core.YearMonth) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMonthChanged(ctx, ownerID, ym); err != nil {
		// Events are best effort; the mutation itself already succeeded.
		slog.WarnContext(ctx, "Failed to publish month-changed event",
			"month", ym.String(),
			"error", err)
	}
}

// foldDailyBalances walks every day of the month in order, adding that day's
// income and subtracting its expenses. Decimal arithmetic throughout; no
// floats touch money.
func foldDailyBalances(ym core.YearMonth, opening decimal.Decimal, income, expenses []*core.Occurrence) []core.DailyBalance {
	running := opening
	last := ym.LastDay()
	balances := make([]core.DailyBalance, 0, ym.Days())

	for date := ym.FirstDay(); !date.After(last); date = date.AddDays(1) {
		for _, in := range income {
			if in.Date.Equal(date) {
				running = running.Add(in.Amount)
			}
		}
		for _, ex := range expenses {
			if ex.Date.Equal(date) {
				running = running.Sub(ex.Amount)
			}
		}
		balances = append(balances, core.DailyBalance{Date: date, Balance: running})
	}

	return balances
}
