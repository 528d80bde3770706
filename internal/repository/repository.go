package repository

import (
	"context"

	"kart-admin/internal/model"
)

// EntityRepository defines data access for every admin resource. It is the
// persistence client behind the form sessions.
type EntityRepository interface {
	// List returns one page of entities matching filters, newest first.
	List(ctx context.Context, resource model.ResourceType, filters model.Filters) (model.Page, error)

	// ListAll returns every entity of resource, oldest first.
	ListAll(ctx context.Context, resource model.ResourceType) ([]model.Entity, error)

	// Get retrieves a single entity with its child collections.
	Get(ctx context.Context, resource model.ResourceType, id string) (model.Entity, error)

	// Create stores a new entity and returns it with its assigned id.
	Create(ctx context.Context, resource model.ResourceType, payload model.Payload) (model.Entity, error)

	// Update replaces the fields of an entity and every collection named in
	// the payload.
	Update(ctx context.Context, resource model.ResourceType, id string, payload model.Payload) (model.Entity, error)

	// Delete removes an entity and its children.
	Delete(ctx context.Context, resource model.ResourceType, id string) error
}
