package model

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ResourceType names one admin screen and its backing collection.
type ResourceType string

const (
	ResourceProducts   ResourceType = "products"
	ResourceCategories ResourceType = "categories"
	ResourceUsers      ResourceType = "users"
	ResourceOrders     ResourceType = "orders"
)

// ResourceTypes returns every known resource type.
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceProducts, ResourceCategories, ResourceUsers, ResourceOrders}
}

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	for _, t := range ResourceTypes() {
		if r == t {
			return true
		}
	}
	return false
}

// Entity is a persisted record: named scalar fields plus named child
// collections. Audit fields are set by the persistence client only.
type Entity struct {
	ID        string
	Fields    Fields
	Children  map[string][]Fields
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
}

// EntityID returns the entity identifier.
func (e Entity) EntityID() string { return e.ID }

// FieldValues returns a deep copy of the entity fields.
func (e Entity) FieldValues() Fields { return e.Fields.Clone() }

// ChildRecords returns a deep copy of the named child collection.
func (e Entity) ChildRecords(name string) []Fields {
	return cloneRecords(e.Children[name])
}

// Clone returns a deep copy of e.
func (e Entity) Clone() Entity {
	out := e
	out.Fields = e.Fields.Clone()
	if e.Children != nil {
		out.Children = make(map[string][]Fields, len(e.Children))
		for k, v := range e.Children {
			out.Children[k] = cloneRecords(v)
		}
	}
	return out
}

// MarshalJSON renders the entity as one flat object.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+len(e.Children)+4)
	for k, v := range e.Fields {
		out[k] = v
	}
	for k, v := range e.Children {
		out[k] = v
	}
	out["id"] = e.ID
	if !e.CreatedAt.IsZero() {
		out["created_at"] = e.CreatedAt
		out["created_by"] = e.CreatedBy
	}
	if !e.UpdatedAt.IsZero() {
		out["updated_at"] = e.UpdatedAt
	}
	return json.Marshal(out)
}

// Payload is what a submit sends to the persistence client: the draft
// fields plus the finalized contents of every sub-collection.
type Payload struct {
	Fields      Fields
	Collections map[string][]Fields
}

// MarshalJSON renders the payload as a flat object of scalar fields plus
// one array per sub-collection, e.g. {"name": ..., "productVariants": [...]}.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+len(p.Collections))
	for k, v := range p.Fields {
		out[k] = v
	}
	for k, v := range p.Collections {
		if v == nil {
			v = []Fields{}
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// Page is one page of a list call.
type Page struct {
	Items      []Entity `json:"items"`
	Total      int      `json:"totalElements"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	TotalPages int      `json:"totalPages"`
}

// Filters narrows a list call. Match holds exact-value filters keyed by
// field name, e.g. {"status": "pending", "payment_status": "failed"}.
type Filters struct {
	Search string
	Match  map[string]string
	Page   int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize applies paging defaults and bounds. Blank match values are
// dropped and the map is copied, nil when empty.
func (f Filters) Normalize() Filters {
	var match map[string]string
	for k, v := range f.Match {
		if v = strings.TrimSpace(v); v != "" {
			if match == nil {
				match = make(map[string]string, len(f.Match))
			}
			match[k] = v
		}
	}
	f.Match = match
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	return f
}

// Offset returns the row offset for the requested page.
func (f Filters) Offset() int {
	n := f.Normalize()
	return (n.Page - 1) * n.Size
}

// TotalPages computes the page count for total rows at the given size.
func TotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

type actorKey struct{}

// WithActor returns a context carrying the authenticated actor name.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
