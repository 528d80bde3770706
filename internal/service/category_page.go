package service

import (
	"context"
	"fmt"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/resource"
	"kart-admin/internal/tree"

	"github.com/rs/zerolog"
)

// CategoryPage is the categories screen, which also shows the hierarchy.
type CategoryPage struct {
	*Page
}

// NewCategoryPage creates the categories page.
func NewCategoryPage(def resource.Definition, store Store, uploader form.ImageUploader, logger zerolog.Logger) *CategoryPage {
	return &CategoryPage{Page: NewPage(def, store, uploader, logger)}
}

// Tree loads every category and builds the forest of roots. Categories whose
// parent is missing are not part of any tree.
func (p *CategoryPage) Tree(ctx context.Context) ([]tree.Node, error) {
	entities, err := p.store.ListAll(ctx, model.ResourceCategories)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to load categories")
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	categories := model.CategoriesFromEntities(entities)
	nodes, err := tree.Forest(categories)
	if err != nil {
		p.logger.Error().Err(err).Msg("category hierarchy is cyclic")
		return nil, err
	}

	if orphans := tree.Orphans(categories); len(orphans) > 0 {
		p.logger.Warn().Int("count", len(orphans)).Msg("categories with missing parent left out of tree")
	}
	return nodes, nil
}
