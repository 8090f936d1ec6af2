package services

import (
	"context"

	"budgetcal/internal/core"
)

// Every store method takes an explicit owner id; the engine never infers the
// caller from ambient state. A store must never return or touch another
// owner's rows.

// TemplateStore persists recurring-expense templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *core.Template) error
	GetTemplate(ctx context.Context, ownerID string, id int64) (*core.Template, error)
	ListActiveTemplates(ctx context.Context, ownerID string) ([]*core.Template, error)
	UpdateTemplate(ctx context.Context, t *core.Template) error
}

// OccurrenceStore persists concrete expense and income entries.
type OccurrenceStore interface {
	CreateOccurrence(ctx context.Context, o *core.Occurrence) error

	// CreateOccurrenceIfAbsent inserts o unless an occurrence for the same
	// (owner, template, date) already exists. The check and the insert must be
	// atomic so concurrent materialization cannot produce duplicates. Returns
	// whether a row was created.
	CreateOccurrenceIfAbsent(ctx context.Context, o *core.Occurrence) (bool, error)

	GetOccurrence(ctx context.Context, ownerID string, id int64) (*core.Occurrence, error)

	// ListMonthOccurrences returns the owner's occurrences of one kind for a
	// month, ordered by date.
	ListMonthOccurrences(ctx context.Context, ownerID string, kind core.OccurrenceKind, ym core.YearMonth) ([]*core.Occurrence, error)

	ListTemplateOccurrences(ctx context.Context, ownerID string, templateID int64) ([]*core.Occurrence, error)
	UpdateOccurrence(ctx context.Context, o *core.Occurrence) error
	DeleteOccurrence(ctx context.Context, ownerID string, id int64) error

	// DeleteTemplateOccurrencesFrom removes every occurrence of a template
	// dated on or after from, returning how many were deleted.
	DeleteTemplateOccurrencesFrom(ctx context.Context, ownerID string, templateID int64, from core.Date) (int64, error)

	// HasOccurrencesIn reports whether any occurrence of either kind exists in
	// the month.
	HasOccurrencesIn(ctx context.Context, ownerID string, ym core.YearMonth) (bool, error)
}

// AccountStore persists the single account per owner.
type AccountStore interface {
	// GetOrCreateAccount returns the owner's account, creating one with a zero
	// starting balance on first touch.
	GetOrCreateAccount(ctx context.Context, ownerID string) (*core.Account, error)
	UpdateAccount(ctx context.Context, a *core.Account) error
}

// Store bundles the three persistence contracts; both backends implement it.
type Store interface {
	TemplateStore
	OccurrenceStore
	AccountStore
}

// EventPublisher notifies downstream consumers that a month's ledger content
// changed. Implementations must be safe for concurrent use; a nil publisher
// disables events.
type EventPublisher interface {
	PublishMonthChanged(ctx context.Context, ownerID string, ym core.YearMonth) error
}
