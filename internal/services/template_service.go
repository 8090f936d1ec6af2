package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// TemplateService owns the lifecycle of recurring-expense templates:
// creation, edits (optionally rewriting already-materialized future
// instances) and deactivation. Templates are never hard-deleted so historical
// occurrences keep a valid back-reference.
type TemplateService struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

// TemplateUpdate carries the new field values for an edit.
type TemplateUpdate struct {
	Name       string
	Amount     decimal.Decimal
	Recurrence core.Recurrence
}

func NewTemplateService(store Store, events EventPublisher) *TemplateService {
	return &TemplateService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateTemplate validates and persists a new active template.
func (s *TemplateService) CreateTemplate(ctx context.Context, ownerID string, t *core.Template) (*core.Template, error) {
	t.OwnerID = ownerID
	t.Active = true
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	slog.InfoContext(ctx, "Template created",
		"id", t.ID,
		"name", t.Name,
		"recurrence", string(t.Recurrence.Kind()))
	return t, nil
}

// GetTemplate returns one of the owner's templates.
func (s *TemplateService) GetTemplate(ctx context.Context, ownerID string, id int64) (*core.Template, error) {
	return s.store.GetTemplate(ctx, ownerID, id)
}

// ListActiveTemplates returns the owner's active templates.
func (s *TemplateService) ListActiveTemplates(ctx context.Context, ownerID string) ([]*core.Template, error) {
	return s.store.ListActiveTemplates(ctx, ownerID)
}

// UpdateTemplate rewrites the template's fields. When retroactive is true,
// every already-materialized occurrence of the template dated today or later
// is rewritten to the new name and amount; strictly-past occurrences are
// never touched, preserving history. Future generation always uses the new
// fields either way.
func (s *TemplateService) UpdateTemplate(ctx context.Context, ownerID string, id int64, update TemplateUpdate, retroactive bool) (*core.Template, error) {
	t, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	t.Name = update.Name
	t.Amount = update.Amount
	t.Recurrence = update.Recurrence
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	if retroactive {
		if err := s.rewriteFutureOccurrences(ctx, t); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "Template updated",
		"id", t.ID,
		"name", t.Name,
		"retroactive", retroactive)
	return t, nil
}

func (s *TemplateService) rewriteFutureOccurrences(ctx context.Context, t *core.Template) error {
	occurrences, err := s.store.ListTemplateOccurrences(ctx, t.OwnerID, t.ID)
	if err != nil {
		return fmt.Errorf("list template occurrences: %w", err)
	}

	today := core.DateOf(s.now())
	rewritten := 0
	touched := map[core.YearMonth]bool{}

	for _, occ := range occurrences {
		if occ.Date.Before(today) {
			continue
		}
		occ.Name = t.Name
		occ.Amount = t.Amount
		if err := s.store.UpdateOccurrence(ctx, occ); err != nil {
			slog.ErrorContext(ctx, "Failed to rewrite occurrence",
				"occurrence_id", occ.ID,
				"template_id", t.ID,
				"error", err)
			continue
		}
		rewritten++
		touched[occ.Date.YearMonthOf()] = true
	}

	if rewritten > 0 {
		slog.InfoContext(ctx, "Rewrote future occurrences after template edit",
			"template_id", t.ID,
			"rewritten", rewritten)
		for ym := range touched {
			s.publishMonthChanged(ctx, t.OwnerID, ym)
		}
	}
	return nil
}

// DeactivateTemplate flips the template inactive, stopping further
// generation. With deleteFutureInstances set, every occurrence dated today or
// later is removed as well; past occurrences stay as history.
func (s *TemplateService) DeactivateTemplate(ctx context.Context, ownerID string, id int64, deleteFutureInstances bool) error {
	t, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return err
	}

	t.Active = false
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}

	if deleteFutureInstances {
		today := core.DateOf(s.now())
		occurrences, err := s.store.ListTemplateOccurrences(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("list template occurrences: %w", err)
		}
		touched := map[core.YearMonth]bool{}
		for _, occ := range occurrences {
			if !occ.Date.Before(today) {
				touched[occ.Date.YearMonthOf()] = true
			}
		}

		deleted, err := s.store.DeleteTemplateOccurrencesFrom(ctx, ownerID, id, today)
		if err != nil {
			return fmt.Errorf("delete future occurrences: %w", err)
		}
		slog.InfoContext(ctx, "Template deactivated",
			"id", id,
			"future_instances_deleted", deleted)
		for ym := range touched {
			s.publishMonthChanged(ctx, ownerID, ym)
		}
		return nil
	}

	slog.InfoContext(ctx, "Template deactivated", "id", id)
	return nil
}

func (s *TemplateService) publishMonthChanged(ctx context.Context, ownerID string, ym core.YearMonth) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMonthChanged(ctx, ownerID, ym); err != nil {
		slog.WarnContext(ctx, "Failed to publish month-changed event",
			"month", ym.String(),
			"error", err)
	}
}
