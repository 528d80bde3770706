package model

// Category statuses offered by the category screen.
const (
	CategoryStatusActive   = "active"
	CategoryStatusInactive = "inactive"
)

// Category is one node of the category hierarchy. A nil ParentID marks a root.
type Category struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parent_id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	Image       string  `json:"image,omitempty"`
}

func (c Category) TreeKey() string { return c.ID }

func (c Category) TreeTitle() string { return c.Name }

// TreeParent returns the parent id, or "" for a root.
func (c Category) TreeParent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}

// CategoryFromEntity reads a category out of a generic entity.
func CategoryFromEntity(e Entity) Category {
	return Category{
		ID:          e.ID,
		ParentID:    e.Fields.OptionalString("parent_id"),
		Name:        e.Fields.String("name"),
		Slug:        e.Fields.String("slug"),
		Description: e.Fields.String("description"),
		Status:      e.Fields.String("status"),
		Image:       e.Fields.String("image"),
	}
}

// CategoriesFromEntities converts a list result into categories, keeping order.
func CategoriesFromEntities(entities []Entity) []Category {
	out := make([]Category, len(entities))
	for i, e := range entities {
		out[i] = CategoryFromEntity(e)
	}
	return out
}
