// Package resource describes the four admin screens: their form schemas,
// list search and sort columns, and the optional submit policies.
package resource

import (
	"context"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/orderstatus"
)

// SortKind tells the list how to compare a sort column.
type SortKind int

const (
	SortText SortKind = iota
	SortNumber
	SortTime
)

// Definition is everything a page needs to know about one resource.
type Definition struct {
	Schema form.Schema
	// SearchFields are matched case-insensitively by the search box. "id"
	// matches the entity id.
	SearchFields []string
	// SortFields lists the sortable columns. "created_at" sorts on the
	// audit timestamp.
	SortFields map[string]SortKind
	// FilterFields are the fields an exact-value list filter may name.
	// Enum fields only accept one of their options.
	FilterFields []string
}

// CategoryLookup returns every category, used by the parent policy.
type CategoryLookup func(ctx context.Context) ([]model.Category, error)

// Options switches on the optional policies. The zero value enables none.
type Options struct {
	OrderTransitions     orderstatus.Transitions
	EnforceOrderTotals   bool
	RejectCategoryCycles bool
	Categories           CategoryLookup
}

// Definitions returns the definition of every resource with the configured
// policies attached.
func Definitions(opts Options) map[model.ResourceType]Definition {
	orders := Orders()
	if len(opts.OrderTransitions) > 0 {
		orders.Schema = orders.Schema.WithPolicies(OrderTransitionPolicy(opts.OrderTransitions))
	}
	if opts.EnforceOrderTotals {
		orders.Schema = orders.Schema.WithPolicies(OrderTotalPolicy())
	}

	categories := Categories()
	if opts.RejectCategoryCycles && opts.Categories != nil {
		categories.Schema = categories.Schema.WithPolicies(CategoryParentPolicy(opts.Categories))
	}

	return map[model.ResourceType]Definition{
		model.ResourceProducts:   Products(),
		model.ResourceCategories: categories,
		model.ResourceUsers:      Users(),
		model.ResourceOrders:     orders,
	}
}

// Products is the product screen.
func Products() Definition {
	return Definition{
		Schema: form.Schema{
			Resource: model.ResourceProducts,
			Fields: []form.Field{
				{Name: "name", Kind: form.String, Required: true, Message: "Please enter product name"},
				{Name: "slug", Kind: form.String, Required: true, Message: "Please enter product slug"},
				{Name: "description", Kind: form.String},
				{Name: "categoryId", Kind: form.Reference, Required: true, Message: "Please select a category"},
				{Name: "price", Kind: form.Number, Required: true, NonNegative: true, Message: "Please enter price"},
				{Name: "originalPrice", Kind: form.Number, Required: true, NonNegative: true, Message: "Please enter original price"},
				{
					Name: "status", Kind: form.Enum, Required: true, Message: "Please select status",
					Options: []string{model.ProductStatusActive, model.ProductStatusInactive, model.ProductStatusOutOfStock},
					Default: model.ProductStatusActive,
				},
				{Name: "isFeatured", Kind: form.Bool, Default: false},
				{Name: "isNew", Kind: form.Bool, Default: false},
				{Name: "isBestseller", Kind: form.Bool, Default: false},
				{Name: "cover", Kind: form.Image},
				{Name: "images", Kind: form.ImageList},
			},
			Collections: []form.CollectionSpec{
				form.CollectionOf[model.ProductVariant]("productVariants", "variant"),
			},
		},
		SearchFields: []string{"name"},
		SortFields:   map[string]SortKind{"name": SortText, "price": SortNumber, "created_at": SortTime},
		FilterFields: []string{"status"},
	}
}

// Categories is the category screen.
func Categories() Definition {
	return Definition{
		Schema: form.Schema{
			Resource: model.ResourceCategories,
			Fields: []form.Field{
				{Name: "name", Kind: form.String, Required: true, Message: "Please enter category name"},
				{Name: "slug", Kind: form.String, Required: true, Message: "Please enter category slug"},
				{Name: "description", Kind: form.String},
				{Name: "parent_id", Kind: form.Reference},
				{
					Name: "status", Kind: form.Enum, Required: true, Message: "Please select status",
					Options: []string{model.CategoryStatusActive, model.CategoryStatusInactive},
					Default: model.CategoryStatusActive,
				},
				{Name: "image", Kind: form.Image},
			},
		},
		SearchFields: []string{"name"},
		SortFields:   map[string]SortKind{"name": SortText, "created_at": SortTime},
		FilterFields: []string{"status"},
	}
}

// Users is the user screen.
func Users() Definition {
	return Definition{
		Schema: form.Schema{
			Resource: model.ResourceUsers,
			Fields: []form.Field{
				{Name: "username", Kind: form.String, Required: true, Message: "Please enter username"},
				{Name: "full_name", Kind: form.String, Required: true, Message: "Please enter full name"},
				{
					Name: "gender", Kind: form.Enum, Required: true, Message: "Please select gender",
					Options: []string{model.GenderMale, model.GenderFemale, model.GenderOther},
				},
				{Name: "birthdate", Kind: form.String},
				{Name: "avatar", Kind: form.Image},
			},
			Collections: []form.CollectionSpec{
				form.CollectionOf[model.Address]("addresses", "address"),
			},
			Policies: []form.Policy{BirthdatePolicy()},
		},
		SearchFields: []string{"username", "full_name"},
		SortFields:   map[string]SortKind{"username": SortText, "full_name": SortText, "birthdate": SortText, "created_at": SortTime},
	}
}

// Orders is the order screen.
func Orders() Definition {
	return Definition{
		Schema: form.Schema{
			Resource: model.ResourceOrders,
			Fields: []form.Field{
				{Name: "account_id", Kind: form.Reference},
				{Name: "account_name", Kind: form.String},
				{Name: "shipping_address_id", Kind: form.Reference},
				{Name: "payment_method", Kind: form.String},
				{
					Name: "status", Kind: form.Enum, Required: true, Message: "Please select a status",
					Options: orderstatus.Statuses(), Default: orderstatus.Pending,
				},
				{
					Name: "payment_status", Kind: form.Enum,
					Options: orderstatus.PaymentStatuses(), Default: orderstatus.PaymentPending,
				},
				{Name: "subtotal", Kind: form.Number, NonNegative: true},
				{Name: "discount", Kind: form.Number, NonNegative: true},
				{Name: "total", Kind: form.Number, NonNegative: true},
				{Name: "item_count", Kind: form.Integer, NonNegative: true},
			},
			Collections: []form.CollectionSpec{
				form.CollectionOf[model.OrderItem]("items", "order item"),
			},
		},
		SearchFields: []string{"id", "account_name"},
		SortFields:   map[string]SortKind{"created_at": SortTime, "total": SortNumber, "item_count": SortNumber},
		FilterFields: []string{"status", "payment_status"},
	}
}
