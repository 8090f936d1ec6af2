package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// AccountService manages the single conceptual account each owner has. The
// account is created lazily with a zero starting balance the first time it is
// needed, so a fresh owner's ledger simply opens at zero.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// GetPrimaryAccount returns the owner's account, creating it if necessary.
func (s *AccountService) GetPrimaryAccount(ctx context.Context, ownerID string) (*core.Account, error) {
	return s.store.GetOrCreateAccount(ctx, ownerID)
}

// UpdateStartingBalance sets the balance the ledger bottoms out on. The new
// value only matters for the earliest month with data; later months chain
// from their predecessors as before.
func (s *AccountService) UpdateStartingBalance(ctx context.Context, ownerID string, balance decimal.Decimal) (*core.Account, error) {
	if !balance.Equal(balance.Round(2)) {
		return nil, fmt.Errorf("%w: more than two fraction digits in %s", core.ErrInvalidAmount, balance)
	}

	account, err := s.store.GetOrCreateAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	account.StartingBalance = balance
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update starting balance: %w", err)
	}

	slog.InfoContext(ctx, "Starting balance updated",
		"account_id", account.ID,
		"balance", balance.StringFixed(2))
	return account, nil
}

// UpdateName renames the account.
func (s *AccountService) UpdateName(ctx context.Context, ownerID, name string) (*core.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, core.ErrEmptyName
	}

	account, err := s.store.GetOrCreateAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	account.Name = name
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update account name: %w", err)
	}
	return account, nil
}
