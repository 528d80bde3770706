// Package service holds one page per admin screen: the displayed list, its
// search and sort, and the screen's single form session.
package service

import (
	"context"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/resource"
	"kart-admin/internal/upload"

	"github.com/rs/zerolog"
)

// Store is the persistence a page needs. repository.EntityRepository
// satisfies it.
type Store interface {
	form.PersistenceClient
	ListAll(ctx context.Context, resource model.ResourceType) ([]model.Entity, error)
	Get(ctx context.Context, resource model.ResourceType, id string) (model.Entity, error)
}

// ListQuery is a list request: server-side filters plus the sort applied to
// the returned page.
type ListQuery struct {
	model.Filters
	Sort string
	Desc bool
}

// Deleted is emitted after an entity was removed.
type Deleted struct {
	Resource model.ResourceType
	ID       string
}

// Pages holds the page of every resource.
type Pages struct {
	pages      map[model.ResourceType]*Page
	orders     *OrderPage
	categories *CategoryPage
}

// NewPages builds a page per resource. The category parent policy, when
// enabled in opts without its own lookup, reads categories from store.
func NewPages(store Store, uploader upload.Uploader, opts resource.Options, logger zerolog.Logger) *Pages {
	if opts.RejectCategoryCycles && opts.Categories == nil {
		opts.Categories = CategoryLookup(store)
	}
	defs := resource.Definitions(opts)

	var up form.ImageUploader
	if uploader != nil {
		up = uploader
	}

	p := &Pages{pages: make(map[model.ResourceType]*Page, len(defs))}
	p.orders = NewOrderPage(defs[model.ResourceOrders], store, opts.OrderTransitions, logger)
	p.categories = NewCategoryPage(defs[model.ResourceCategories], store, up, logger)
	p.pages[model.ResourceOrders] = p.orders.Page
	p.pages[model.ResourceCategories] = p.categories.Page
	p.pages[model.ResourceProducts] = NewPage(defs[model.ResourceProducts], store, up, logger)
	p.pages[model.ResourceUsers] = NewPage(defs[model.ResourceUsers], store, up, logger)
	return p
}

// Page returns the page of resource.
func (p *Pages) Page(resource model.ResourceType) (*Page, bool) {
	page, ok := p.pages[resource]
	return page, ok
}

// Orders returns the orders page.
func (p *Pages) Orders() *OrderPage { return p.orders }

// Categories returns the categories page.
func (p *Pages) Categories() *CategoryPage { return p.categories }

// CategoryLookup reads every category from store.
func CategoryLookup(store Store) resource.CategoryLookup {
	return func(ctx context.Context) ([]model.Category, error) {
		entities, err := store.ListAll(ctx, model.ResourceCategories)
		if err != nil {
			return nil, err
		}
		return model.CategoriesFromEntities(entities), nil
	}
}
