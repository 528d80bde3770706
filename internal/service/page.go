package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/resource"

	"github.com/rs/zerolog"
)

// Page is one admin screen: the displayed collection and the screen's form
// session. Saved and deleted entities are applied to the displayed
// collection without a reload.
type Page struct {
	def    resource.Definition
	store  Store
	form   *form.Controller
	logger zerolog.Logger

	mu        sync.RWMutex
	rows      []model.Entity
	query     ListQuery
	onDeleted func(Deleted)
}

// NewPage creates the page of def.
func NewPage(def resource.Definition, store Store, uploader form.ImageUploader, logger zerolog.Logger) *Page {
	p := &Page{
		def:    def,
		store:  store,
		form:   form.NewController(def.Schema, store, uploader, logger),
		logger: logger.With().Str("service", "page").Str("resource", string(def.Schema.Resource)).Logger(),
	}
	p.form.OnSaved(p.applySaved)
	return p
}

// Resource returns the resource type of the page.
func (p *Page) Resource() model.ResourceType { return p.def.Schema.Resource }

// Definition returns the resource definition behind the page.
func (p *Page) Definition() resource.Definition { return p.def }

// Form returns the page's form session.
func (p *Page) Form() *form.Controller { return p.form }

// OnDeleted registers fn to be called after every successful delete.
func (p *Page) OnDeleted(fn func(Deleted)) {
	p.mu.Lock()
	p.onDeleted = fn
	p.mu.Unlock()
}

// List loads one page from the store, sorts it and makes it the displayed
// collection.
func (p *Page) List(ctx context.Context, q ListQuery) (model.Page, error) {
	if q.Sort != "" {
		if _, ok := p.def.SortFields[q.Sort]; !ok {
			return model.Page{}, model.NewValidationError(model.FieldError{
				Field:   "sort",
				Message: "must be one of " + strings.Join(p.sortFields(), ", "),
			})
		}
	}
	q.Filters = q.Filters.Normalize()
	if err := p.checkFilters(q.Match); err != nil {
		return model.Page{}, err
	}

	page, err := p.store.List(ctx, p.Resource(), q.Filters)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list entities")
		return model.Page{}, fmt.Errorf("failed to list %s: %w", p.Resource(), err)
	}
	p.sortRows(page.Items, q.Sort, q.Desc)

	p.mu.Lock()
	p.rows = cloneEntities(page.Items)
	p.query = q
	p.mu.Unlock()

	p.logger.Debug().
		Int("count", len(page.Items)).
		Int("total", page.Total).
		Int("page", page.Page).
		Msg("retrieved entities")

	return page, nil
}

// checkFilters rejects filters on fields the resource does not list and enum
// values outside the field's options.
func (p *Page) checkFilters(match map[string]string) error {
	keys := make([]string, 0, len(match))
	for k := range match {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []model.FieldError
	for _, k := range keys {
		if !p.filterable(k) {
			errs = append(errs, model.FieldError{Field: k, Message: "is not filterable"})
			continue
		}
		f, ok := p.def.Schema.Field(k)
		if !ok || f.Kind != form.Enum || len(f.Options) == 0 {
			continue
		}
		if !containsString(f.Options, match[k]) {
			errs = append(errs, model.FieldError{Field: k, Message: "must be one of " + strings.Join(f.Options, ", ")})
		}
	}
	if len(errs) > 0 {
		return model.NewValidationError(errs...)
	}
	return nil
}

func (p *Page) filterable(field string) bool {
	return containsString(p.def.FilterFields, field)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Refresh reloads the displayed collection with the last query.
func (p *Page) Refresh(ctx context.Context) error {
	p.mu.RLock()
	q := p.query
	p.mu.RUnlock()

	_, err := p.List(ctx, q)
	return err
}

// Rows returns the displayed collection narrowed to rows whose search fields
// contain term, ignoring case. An empty term returns every row.
func (p *Page) Rows(term string) []model.Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.Entity, 0, len(p.rows))
	for _, e := range p.rows {
		if term == "" || p.matches(e, term) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// OpenAdd opens the form on an empty draft.
func (p *Page) OpenAdd() error {
	return p.form.Open(form.ModeAdd, nil)
}

// OpenEdit opens the form on a copy of entity id.
func (p *Page) OpenEdit(ctx context.Context, id string) error {
	e, err := p.find(ctx, id)
	if err != nil {
		return err
	}
	return p.form.Open(form.ModeEdit, &e)
}

// OpenView opens the form read-only on a copy of entity id.
func (p *Page) OpenView(ctx context.Context, id string) error {
	e, err := p.find(ctx, id)
	if err != nil {
		return err
	}
	return p.form.Open(form.ModeView, &e)
}

// Delete removes entity id and drops it from the displayed collection. A
// form open on the same entity is cancelled.
func (p *Page) Delete(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, p.Resource(), id); err != nil {
		p.logger.Error().Err(err).Str("id", id).Msg("failed to delete entity")
		return fmt.Errorf("failed to delete %s: %w", p.Resource(), err)
	}

	if snap := p.form.Snapshot(); snap.ID == id && snap.State == form.StateOpen {
		if err := p.form.Cancel(); err != nil {
			p.logger.Warn().Err(err).Str("id", id).Msg("form left open on deleted entity")
		}
	}

	p.mu.Lock()
	for i, e := range p.rows {
		if e.ID == id {
			p.rows = append(p.rows[:i:i], p.rows[i+1:]...)
			break
		}
	}
	handler := p.onDeleted
	p.mu.Unlock()

	p.logger.Info().Str("id", id).Msg("entity deleted")
	if handler != nil {
		handler(Deleted{Resource: p.Resource(), ID: id})
	}
	return nil
}

// find returns entity id from the displayed collection, falling back to the
// store.
func (p *Page) find(ctx context.Context, id string) (model.Entity, error) {
	p.mu.RLock()
	for _, e := range p.rows {
		if e.ID == id {
			p.mu.RUnlock()
			return e.Clone(), nil
		}
	}
	p.mu.RUnlock()

	e, err := p.store.Get(ctx, p.Resource(), id)
	if err != nil {
		return model.Entity{}, fmt.Errorf("failed to load %s: %w", p.Resource(), err)
	}
	return e, nil
}

// applySaved puts a saved entity into the displayed collection: added
// entities go first, edited ones are replaced in place.
func (p *Page) applySaved(s form.Saved) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := s.Entity.Clone()
	if s.Mode == form.ModeEdit {
		for i := range p.rows {
			if p.rows[i].ID == e.ID {
				p.rows[i] = e
				return
			}
		}
	}
	p.rows = append([]model.Entity{e}, p.rows...)
}

func (p *Page) matches(e model.Entity, term string) bool {
	for _, field := range p.def.SearchFields {
		v := e.Fields.String(field)
		if field == "id" {
			v = e.ID
		}
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func (p *Page) sortRows(rows []model.Entity, field string, desc bool) {
	if field == "" {
		return
	}
	kind := p.def.SortFields[field]
	less := func(a, b model.Entity) bool {
		switch kind {
		case resource.SortNumber:
			x, _ := a.Fields.Float(field)
			y, _ := b.Fields.Float(field)
			return x < y
		case resource.SortTime:
			if field == "created_at" {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.Fields.String(field) < b.Fields.String(field)
		default:
			return strings.ToLower(a.Fields.String(field)) < strings.ToLower(b.Fields.String(field))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func (p *Page) sortFields() []string {
	out := make([]string, 0, len(p.def.SortFields))
	for name := range p.def.SortFields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func cloneEntities(in []model.Entity) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
