package googlesheets

import (
	"testing"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
	"budgetcal/internal/services"
)

func TestBuildRows(t *testing.T) {
	rent := &core.Occurrence{Kind: core.KindExpense, Name: "Rent", Amount: decimal.RequireFromString("900")}
	rent.SetDate(core.NewDate(2024, 5, 5))
	salary := &core.Occurrence{Kind: core.KindIncome, Name: "Salary", Amount: decimal.RequireFromString("2000")}
	salary.SetDate(core.NewDate(2024, 5, 25))

	view := &services.MonthView{
		Expenses: []*core.Occurrence{rent},
		Income:   []*core.Occurrence{salary},
		DailyBalances: []core.DailyBalance{
			{Date: core.NewDate(2024, 5, 1), Balance: decimal.Zero},
			{Date: core.NewDate(2024, 5, 2), Balance: decimal.RequireFromString("-900")},
		},
	}

	rows := buildRows(view)

	// Header, two entries, spacer, balance header, two balance rows.
	if len(rows) != 7 {
		t.Fatalf("got %d rows, want 7", len(rows))
	}
	if rows[1][3] != "900.00" {
		t.Errorf("expense amount cell = %v, want two fixed decimals", rows[1][3])
	}
	if rows[2][1] != "income" {
		t.Errorf("income row kind = %v", rows[2][1])
	}
	if rows[6][1] != "-900.00" {
		t.Errorf("balance cell = %v, want -900.00", rows[6][1])
	}
}
