package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// OccurrenceService handles one-time calendar entries and direct edits of
// individual instances, regardless of whether a template originally produced
// them. An edited instance is self-contained: it keeps its own stored name
// and amount even if its template later changes or disappears.
type OccurrenceService struct {
	store  Store
	events EventPublisher
}

func NewOccurrenceService(store Store, events EventPublisher) *OccurrenceService {
	return &OccurrenceService{
		store:  store,
		events: events,
	}
}

// CreateOccurrence records a manually entered expense or income on a date.
func (s *OccurrenceService) CreateOccurrence(ctx context.Context, ownerID string, kind core.OccurrenceKind, name string, amount decimal.Decimal, date core.Date) (*core.Occurrence, error) {
	occ := &core.Occurrence{
		OwnerID: ownerID,
		Kind:    kind,
		Name:    name,
		Amount:  amount,
	}
	occ.SetDate(date)
	if err := occ.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("create occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Occurrence created",
		"id", occ.ID,
		"kind", string(kind),
		"date", date.String())
	s.publishMonthChanged(ctx, ownerID, date.YearMonthOf())
	return occ, nil
}

// GetOccurrence returns one of the owner's occurrences.
func (s *OccurrenceService) GetOccurrence(ctx context.Context, ownerID string, id int64) (*core.Occurrence, error) {
	return s.store.GetOccurrence(ctx, ownerID, id)
}

// UpdateOccurrence rewrites name, amount and date of a single instance.
func (s *OccurrenceService) UpdateOccurrence(ctx context.Context, ownerID string, id int64, name string, amount decimal.Decimal, date core.Date) (*core.Occurrence, error) {
	occ, err := s.store.GetOccurrence(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	origin := occ.Date.YearMonthOf()
	occ.Name = name
	occ.Amount = amount
	occ.SetDate(date)
	if err := occ.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("update occurrence: %w", err)
	}

	s.publishMonthChanged(ctx, ownerID, origin)
	if dest := date.YearMonthOf(); dest != origin {
		s.publishMonthChanged(ctx, ownerID, dest)
	}
	return occ, nil
}

// UpdateAmount is the quick-edit path: change only how much an instance
// costs, e.g. an extra payment on top of a fixed mortgage.
func (s *OccurrenceService) UpdateAmount(ctx context.Context, ownerID string, id int64, amount decimal.Decimal) (*core.Occurrence, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return nil, err
	}

	occ, err := s.store.GetOccurrence(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	occ.Amount = amount
	if err := s.store.UpdateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("update occurrence amount: %w", err)
	}

	s.publishMonthChanged(ctx, ownerID, occ.Date.YearMonthOf())
	return occ, nil
}

// DeleteOccurrence removes a single instance.
func (s *OccurrenceService) DeleteOccurrence(ctx context.Context, ownerID string, id int64) error {
	occ, err := s.store.GetOccurrence(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOccurrence(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Occurrence deleted",
		"id", id,
		"kind", string(occ.Kind),
		"date", occ.Date.String())
	s.publishMonthChanged(ctx, ownerID, occ.Date.YearMonthOf())
	return nil
}

func (s *OccurrenceService) publishMonthChanged(ctx context.Context, ownerID string, ym core.YearMonth) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMonthChanged(ctx, ownerID, ym); err != nil {
		slog.WarnContext(ctx, "Failed to publish month-changed event",
			"month", ym.String(),
			"error", err)
	}
}
