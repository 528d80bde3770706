package service

import (
	"context"
	"fmt"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/orderstatus"
	"kart-admin/internal/resource"

	"github.com/rs/zerolog"
)

// OrderPage is the orders screen. Besides the usual form session it offers a
// one-step status change.
type OrderPage struct {
	*Page
	workflow *orderstatus.Workflow
	logger   zerolog.Logger
}

// NewOrderPage creates the orders page. transitions may be nil, which allows
// every status change.
func NewOrderPage(def resource.Definition, store Store, transitions orderstatus.Transitions, logger zerolog.Logger) *OrderPage {
	return &OrderPage{
		Page:     NewPage(def, store, nil, logger),
		workflow: orderstatus.NewWorkflow(transitions),
		logger:   logger.With().Str("service", "order").Logger(),
	}
}

// Workflow returns the status workflow of the page.
func (p *OrderPage) Workflow() *orderstatus.Workflow { return p.workflow }

// UpdateStatus moves order id to status and saves it. The change runs in its
// own form session so an edit in progress on the page is left alone; every
// schema policy still applies.
func (p *OrderPage) UpdateStatus(ctx context.Context, id, status string) (model.Entity, error) {
	entity, err := p.find(ctx, id)
	if err != nil {
		return model.Entity{}, err
	}

	order := model.OrderFromEntity(entity)
	updated, err := p.workflow.Transition(order, status)
	if err != nil {
		p.logger.Warn().Err(err).Str("order_id", id).Str("from", order.Status).Str("to", status).Msg("status change rejected")
		return model.Entity{}, err
	}

	session := form.NewController(p.def.Schema, p.store, nil, p.logger)
	session.OnSaved(p.applySaved)
	if err := session.Open(form.ModeEdit, &entity); err != nil {
		return model.Entity{}, err
	}
	if err := session.SetField("status", updated.Status); err != nil {
		_ = session.Cancel()
		return model.Entity{}, err
	}

	saved, err := session.Submit(ctx)
	if err != nil {
		_ = session.Cancel()
		return model.Entity{}, fmt.Errorf("failed to update order status: %w", err)
	}

	p.logger.Info().
		Str("order_id", id).
		Str("from", order.Status).
		Str("to", updated.Status).
		Msg("order status updated")

	return saved.Entity, nil
}
