package services

import (
	"context"
	"errors"
	"testing"

	"budgetcal/internal/core"
	"budgetcal/internal/storage"
)

func TestGetPrimaryAccountIsLazy(t *testing.T) {
	svc := NewAccountService(storage.NewMemoryRepository())
	ctx := context.Background()

	account, err := svc.GetPrimaryAccount(ctx, testOwner)
	if err != nil {
		t.Fatalf("get primary account: %v", err)
	}
	if account.ID == 0 {
		t.Errorf("lazily created account has no id")
	}
	if !account.StartingBalance.IsZero() {
		t.Errorf("fresh account starts at %s, want 0", account.StartingBalance)
	}

	again, err := svc.GetPrimaryAccount(ctx, testOwner)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again.ID != account.ID {
		t.Errorf("second lookup created a new account: %d vs %d", again.ID, account.ID)
	}
}

func TestUpdateStartingBalance(t *testing.T) {
	svc := NewAccountService(storage.NewMemoryRepository())
	ctx := context.Background()

	// Negative starting balances are fine, overdrafts exist.
	account, err := svc.UpdateStartingBalance(ctx, testOwner, amt("-250.75"))
	if err != nil {
		t.Fatalf("update starting balance: %v", err)
	}
	if !account.StartingBalance.Equal(amt("-250.75")) {
		t.Errorf("starting balance = %s, want -250.75", account.StartingBalance)
	}

	if _, err := svc.UpdateStartingBalance(ctx, testOwner, amt("10.125")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("sub-cent balance accepted: %v", err)
	}
}

func TestUpdateAccountName(t *testing.T) {
	svc := NewAccountService(storage.NewMemoryRepository())
	ctx := context.Background()

	account, err := svc.UpdateName(ctx, testOwner, "Checking")
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if account.Name != "Checking" {
		t.Errorf("name = %q, want Checking", account.Name)
	}

	if _, err := svc.UpdateName(ctx, testOwner, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name accepted: %v", err)
	}
}

func TestAccountsAreScopedPerOwner(t *testing.T) {
	repo := storage.NewMemoryRepository()
	svc := NewAccountService(repo)
	ctx := context.Background()

	if _, err := svc.UpdateStartingBalance(ctx, "owner-a", amt("100.00")); err != nil {
		t.Fatalf("owner-a: %v", err)
	}
	other, err := svc.GetPrimaryAccount(ctx, "owner-b")
	if err != nil {
		t.Fatalf("owner-b: %v", err)
	}
	if !other.StartingBalance.IsZero() {
		t.Errorf("owner-b sees owner-a's balance %s", other.StartingBalance)
	}
}
