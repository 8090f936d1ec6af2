package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/services"
	"budgetcal/internal/storage"
)

type exportCall struct {
	ownerID string
	ym      core.YearMonth
	view    *services.MonthView
}

type fakeExporter struct {
	calls []exportCall
	err   error
}

func (f *fakeExporter) ExportMonth(_ context.Context, ownerID string, ym core.YearMonth, view *services.MonthView) error {
	f.calls = append(f.calls, exportCall{ownerID: ownerID, ym: ym, view: view})
	return f.err
}

func TestHandleMonthChanged(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	occ := &core.Occurrence{
		OwnerID: "owner-1",
		Kind:    core.KindExpense,
		Name:    "Rent",
		Amount:  decimal.RequireFromString("900.00"),
	}
	occ.SetDate(core.NewDate(2024, 5, 5))
	if err := repo.CreateOccurrence(ctx, occ); err != nil {
		t.Fatalf("create occurrence: %v", err)
	}

	exporter := &fakeExporter{}
	w := NewReportWorker(services.NewBudgetService(repo, nil), exporter)

	msg := amqp.NewMonthChangedMessage("owner-1", core.NewYearMonth(2024, 5))
	if err := w.HandleMonthChanged(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(exporter.calls) != 1 {
		t.Fatalf("exporter called %d times, want 1", len(exporter.calls))
	}
	call := exporter.calls[0]
	if call.ownerID != "owner-1" || call.ym != core.NewYearMonth(2024, 5) {
		t.Errorf("exported %s %v", call.ownerID, call.ym)
	}
	if len(call.view.Expenses) != 1 || len(call.view.DailyBalances) != 31 {
		t.Errorf("view has %d expenses and %d balances", len(call.view.Expenses), len(call.view.DailyBalances))
	}
}

func TestHandleMonthChangedExportFailure(t *testing.T) {
	repo := storage.NewMemoryRepository()
	exporter := &fakeExporter{err: errors.New("sheets unavailable")}
	w := NewReportWorker(services.NewBudgetService(repo, nil), exporter)

	msg := amqp.NewMonthChangedMessage("owner-1", core.NewYearMonth(2024, 5))
	if err := w.HandleMonthChanged(context.Background(), msg); err == nil {
		t.Error("export failure should propagate so the message is requeued")
	}
}
