package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/services"
)

// MonthExporter writes one owner's month report to an external destination.
type MonthExporter interface {
	ExportMonth(ctx context.Context, ownerID string, ym core.YearMonth, view *services.MonthView) error
}

// ReportWorker reacts to month-changed events by rebuilding the affected
// month's report. Returning an error requeues the message.
type ReportWorker struct {
	budget   *services.BudgetService
	exporter MonthExporter
}

func NewReportWorker(budget *services.BudgetService, exporter MonthExporter) *ReportWorker {
	return &ReportWorker{
		budget:   budget,
		exporter: exporter,
	}
}

// HandleMonthChanged recomputes the month view and pushes the report.
func (w *ReportWorker) HandleMonthChanged(ctx context.Context, msg *amqp.MonthChangedMessage) error {
	ym := msg.YearMonth()

	view, err := w.budget.MaterializeAndListMonth(ctx, msg.OwnerID, ym)
	if err != nil {
		return fmt.Errorf("rebuild month view: %w", err)
	}

	if err := w.exporter.ExportMonth(ctx, msg.OwnerID, ym, view); err != nil {
		return fmt.Errorf("export month report: %w", err)
	}

	slog.InfoContext(ctx, "Rebuilt month report",
		"owner_id", msg.OwnerID,
		"month", ym.String(),
		"expenses", len(view.Expenses),
		"income", len(view.Income))
	return nil
}
