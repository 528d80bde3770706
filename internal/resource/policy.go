package resource

import (
	"context"
	"fmt"
	"math"
	"time"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/orderstatus"
	"kart-admin/internal/tree"
)

// BirthdateLayout is the accepted birthdate format.
const BirthdateLayout = "2006-01-02"

// OrderTransitionPolicy rejects status changes the table does not allow.
// Only edits are checked; a new order may start in any status.
func OrderTransitionPolicy(t orderstatus.Transitions) form.Policy {
	return form.PolicyFunc(func(ctx context.Context, in form.PolicyInput) ([]model.FieldError, error) {
		if in.Mode != form.ModeEdit {
			return nil, nil
		}
		from := in.Original.Fields.String("status")
		to := in.Draft.String("status")
		if err := t.Check(from, to); err != nil {
			return []model.FieldError{{Field: "status", Message: err.Error()}}, nil
		}
		return nil, nil
	})
}

// OrderTotalPolicy requires total = subtotal - discount, to the cent, when
// all three are present.
func OrderTotalPolicy() form.Policy {
	return form.PolicyFunc(func(ctx context.Context, in form.PolicyInput) ([]model.FieldError, error) {
		subtotal, ok1 := in.Draft.Float("subtotal")
		discount, ok2 := in.Draft.Float("discount")
		total, ok3 := in.Draft.Float("total")
		if !ok1 || !ok3 {
			return nil, nil
		}
		if !ok2 {
			discount = 0
		}

		var errs []model.FieldError
		if discount > subtotal {
			errs = append(errs, model.FieldError{Field: "discount", Message: "must not exceed subtotal"})
		}
		expected := subtotal - discount
		if math.Abs(total-expected) >= 0.005 {
			errs = append(errs, model.FieldError{Field: "total", Message: fmt.Sprintf("must equal subtotal minus discount (%.2f)", expected)})
		}
		return errs, nil
	})
}

// CategoryParentPolicy rejects a parent that does not exist or that would
// make a category its own ancestor.
func CategoryParentPolicy(lookup CategoryLookup) form.Policy {
	return form.PolicyFunc(func(ctx context.Context, in form.PolicyInput) ([]model.FieldError, error) {
		parent := in.Draft.String("parent_id")
		if parent == "" {
			return nil, nil
		}
		id := in.Original.ID
		if parent == id {
			return []model.FieldError{{Field: "parent_id", Message: "a category cannot be its own parent"}}, nil
		}

		categories, err := lookup(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}

		found := false
		for _, c := range categories {
			if c.ID == parent {
				found = true
				break
			}
		}
		if !found {
			return []model.FieldError{{Field: "parent_id", Message: "parent category does not exist"}}, nil
		}
		if id != "" && tree.WouldCycle(categories, id, parent) {
			return []model.FieldError{{Field: "parent_id", Message: "parent is a descendant of this category"}}, nil
		}
		return nil, nil
	})
}

// BirthdatePolicy checks the birthdate format and that it is not in the
// future.
func BirthdatePolicy() form.Policy {
	return form.PolicyFunc(func(ctx context.Context, in form.PolicyInput) ([]model.FieldError, error) {
		s := in.Draft.String("birthdate")
		if s == "" {
			return nil, nil
		}
		d, err := time.Parse(BirthdateLayout, s)
		if err != nil {
			return []model.FieldError{{Field: "birthdate", Message: "must be a date like 1990-05-15"}}, nil
		}
		if d.After(time.Now()) {
			return []model.FieldError{{Field: "birthdate", Message: "must not be in the future"}}, nil
		}
		return nil, nil
	})
}
