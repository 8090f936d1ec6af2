package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budgetcal/internal/core"
)

// MemoryRepository is a mutex-guarded in-memory implementation of the same
// store contracts the SQLite repository serves. It backs the "memory" data
// backend and the service tests. The occurrence map plus the lock gives the
// same atomic check-then-insert guarantee the SQLite partial unique index
// provides.
type MemoryRepository struct {
	mu sync.Mutex

	nextTemplateID   int64
	nextOccurrenceID int64
	nextAccountID    int64

	templates   map[int64]*core.Template
	occurrences map[int64]*core.Occurrence
	accounts    map[string]*core.Account // keyed by owner
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		templates:   make(map[int64]*core.Template),
		occurrences: make(map[int64]*core.Occurrence),
		accounts:    make(map[string]*core.Account),
	}
}

// --- templates ---

func (r *MemoryRepository) CreateTemplate(_ context.Context, t *core.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTemplateID++
	t.ID = r.nextTemplateID
	cp := *t
	r.templates[t.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetTemplate(_ context.Context, ownerID string, id int64) (*core.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.templates[id]
	if !ok || t.OwnerID != ownerID {
		return nil, fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) ListActiveTemplates(_ context.Context, ownerID string) ([]*core.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*core.Template
	for _, t := range r.templates {
		if t.OwnerID == ownerID && t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) UpdateTemplate(_ context.Context, t *core.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.templates[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return fmt.Errorf("template %d: %w", t.ID, core.ErrNotFound)
	}
	cp := *t
	r.templates[t.ID] = &cp
	return nil
}

// --- occurrences ---

func (r *MemoryRepository) CreateOccurrence(_ context.Context, o *core.Occurrence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(o)
	return nil
}

func (r *MemoryRepository) CreateOccurrenceIfAbsent(_ context.Context, o *core.Occurrence) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.TemplateID != nil {
		for _, existing := range r.occurrences {
			if existing.OwnerID == o.OwnerID &&
				existing.TemplateID != nil && *existing.TemplateID == *o.TemplateID &&
				existing.Date.Equal(o.Date) {
				return false, nil
			}
		}
	}
	r.insertLocked(o)
	return true, nil
}

func (r *MemoryRepository) insertLocked(o *core.Occurrence) {
	r.nextOccurrenceID++
	o.ID = r.nextOccurrenceID
	cp := *o
	r.occurrences[o.ID] = &cp
}

func (r *MemoryRepository) GetOccurrence(_ context.Context, ownerID string, id int64) (*core.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.occurrences[id]
	if !ok || o.OwnerID != ownerID {
		return nil, fmt.Errorf("occurrence %d: %w", id, core.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) ListMonthOccurrences(_ context.Context, ownerID string, kind core.OccurrenceKind, ym core.YearMonth) ([]*core.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*core.Occurrence
	for _, o := range r.occurrences {
		if o.OwnerID == ownerID && o.Kind == kind && o.Year == ym.Year && o.Month == ym.Month {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) ListTemplateOccurrences(_ context.Context, ownerID string, templateID int64) ([]*core.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*core.Occurrence
	for _, o := range r.occurrences {
		if o.OwnerID == ownerID && o.TemplateID != nil && *o.TemplateID == templateID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) UpdateOccurrence(_ context.Context, o *core.Occurrence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.occurrences[o.ID]
	if !ok || existing.OwnerID != o.OwnerID {
		return fmt.Errorf("occurrence %d: %w", o.ID, core.ErrNotFound)
	}
	cp := *o
	r.occurrences[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteOccurrence(_ context.Context, ownerID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.occurrences[id]
	if !ok || o.OwnerID != ownerID {
		return fmt.Errorf("occurrence %d: %w", id, core.ErrNotFound)
	}
	delete(r.occurrences, id)
	return nil
}

func (r *MemoryRepository) DeleteTemplateOccurrencesFrom(_ context.Context, ownerID string, templateID int64, from core.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, o := range r.occurrences {
		if o.OwnerID == ownerID && o.TemplateID != nil && *o.TemplateID == templateID && !o.Date.Before(from) {
			delete(r.occurrences, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) HasOccurrencesIn(_ context.Context, ownerID string, ym core.YearMonth) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.occurrences {
		if o.OwnerID == ownerID && o.Year == ym.Year && o.Month == ym.Month {
			return true, nil
		}
	}
	return false, nil
}

// --- accounts ---

func (r *MemoryRepository) GetOrCreateAccount(_ context.Context, ownerID string) (*core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[ownerID]; ok {
		cp := *a
		return &cp, nil
	}

	r.nextAccountID++
	a := &core.Account{
		ID:      r.nextAccountID,
		OwnerID: ownerID,
		Name:    "Primary",
	}
	r.accounts[ownerID] = a
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdateAccount(_ context.Context, a *core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[a.OwnerID]
	if !ok || existing.ID != a.ID {
		return fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	cp := *a
	r.accounts[a.OwnerID] = &cp
	return nil
}
