// Package orderstatus holds the order and payment status vocabularies and the
// display rules over them. Everything here is pure.
package orderstatus

import (
	"fmt"
	"sort"
	"strings"

	"kart-admin/internal/model"
)

// Order statuses.
const (
	Pending   = "pending"
	Completed = "completed"
	Cancelled = "cancelled"
	Failed    = "failed"
	Refunded  = "refunded"
)

// Payment statuses. They share spelling with the order statuses but are an
// independent axis.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Badge kinds.
const (
	BadgeProcessing = "processing"
	BadgeSuccess    = "success"
	BadgeError      = "error"
	BadgeWarning    = "warning"
	BadgeDefault    = "default"
)

// Statistic colours and icons of the order detail view.
const (
	ColorGreen  = "#3f8600"
	ColorRed    = "#cf1322"
	ColorOrange = "#fa8c16"
	ColorBlue   = "#1890ff"

	IconCheckCircle = "check-circle"
	IconCloseCircle = "close-circle"
	IconClockCircle = "clock-circle"
)

// Display is how a status is rendered.
type Display struct {
	BadgeKind string `json:"badgeKind"`
	TagColor  string `json:"tagColor"`
	Label     string `json:"label"`
	Tag       string `json:"tag"`
	StatColor string `json:"statColor"`
	Icon      string `json:"icon"`
}

type entry struct {
	badge, tag, label string
}

var orderTable = map[string]entry{
	Pending:   {BadgeProcessing, "blue", "Pending"},
	Completed: {BadgeSuccess, "green", "Completed"},
	Cancelled: {BadgeError, "red", "Cancelled"},
	Failed:    {BadgeError, "red", "Failed"},
	Refunded:  {BadgeWarning, "orange", "Refunded"},
}

var paymentTable = map[string]entry{
	PaymentPending:   {BadgeProcessing, "blue", "Pending"},
	PaymentCompleted: {BadgeSuccess, "green", "Completed"},
	PaymentFailed:    {BadgeError, "red", "Failed"},
}

// Statuses returns the order statuses in screen order.
func Statuses() []string {
	return []string{Pending, Completed, Cancelled, Failed, Refunded}
}

// PaymentStatuses returns the payment statuses in screen order.
func PaymentStatuses() []string {
	return []string{PaymentPending, PaymentCompleted, PaymentFailed}
}

// Classify maps an order status to its display. Unknown statuses get the
// default badge and tag, labelled with the raw value.
func Classify(status string) Display {
	e, ok := orderTable[status]
	if !ok {
		e = entry{BadgeDefault, "default", status}
	}
	d := Display{
		BadgeKind: e.badge,
		TagColor:  e.tag,
		Label:     e.label,
		Tag:       strings.ToUpper(status),
		StatColor: ColorBlue,
		Icon:      IconClockCircle,
	}
	switch status {
	case Completed:
		d.StatColor, d.Icon = ColorGreen, IconCheckCircle
	case Cancelled, Failed:
		d.StatColor, d.Icon = ColorRed, IconCloseCircle
	case Refunded:
		d.StatColor = ColorOrange
	}
	return d
}

// ClassifyPayment maps a payment status to its display.
func ClassifyPayment(status string) Display {
	e, ok := paymentTable[status]
	if !ok {
		e = entry{BadgeDefault, "default", status}
	}
	d := Display{
		BadgeKind: e.badge,
		TagColor:  e.tag,
		Label:     e.label,
		Tag:       strings.ToUpper(status),
		StatColor: ColorBlue,
		Icon:      "credit-card",
	}
	switch status {
	case PaymentCompleted:
		d.StatColor = ColorGreen
	case PaymentFailed:
		d.StatColor = ColorRed
	}
	return d
}

// IsKnown reports whether status is one of Statuses.
func IsKnown(status string) bool {
	_, ok := orderTable[status]
	return ok
}

// IsKnownPayment reports whether status is one of PaymentStatuses.
func IsKnownPayment(status string) bool {
	_, ok := paymentTable[status]
	return ok
}

// UpdateStatus returns a copy of order with its status replaced. Any status
// may follow any other; restrictions belong in a Transitions table.
func UpdateStatus(order model.Order, status string) model.Order {
	out := order
	out.Items = append([]model.OrderItem(nil), order.Items...)
	out.Status = status
	return out
}

// Transitions lists, per source status, the statuses an order may move to.
// A nil or empty table allows every transition.
type Transitions map[string][]string

// Allow reports whether from -> to is permitted. Keeping the same status is
// always allowed.
func (t Transitions) Allow(from, to string) bool {
	if len(t) == 0 || from == to {
		return true
	}
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check returns an error naming the allowed targets when from -> to is not
// permitted.
func (t Transitions) Check(from, to string) error {
	if t.Allow(from, to) {
		return nil
	}
	allowed := append([]string(nil), t[from]...)
	sort.Strings(allowed)
	if len(allowed) == 0 {
		return fmt.Errorf("status %q is final", from)
	}
	return fmt.Errorf("cannot move from %q to %q (allowed: %s)", from, to, strings.Join(allowed, ", "))
}

// ParseTransitions reads a table written as "pending:completed|cancelled;completed:refunded".
// An empty string yields a nil table.
func ParseTransitions(s string) (Transitions, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t := Transitions{}
	for _, rule := range strings.Split(s, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		from, targets, ok := strings.Cut(rule, ":")
		from = strings.TrimSpace(from)
		if !ok || !IsKnown(from) {
			return nil, fmt.Errorf("invalid transition rule %q", rule)
		}
		t[from] = []string{}
		for _, to := range strings.Split(targets, "|") {
			to = strings.TrimSpace(to)
			if to == "" {
				continue
			}
			if !IsKnown(to) {
				return nil, fmt.Errorf("invalid transition rule %q: unknown status %q", rule, to)
			}
			t[from] = append(t[from], to)
		}
	}
	return t, nil
}

// Workflow applies status changes to orders under an optional transition
// table.
type Workflow struct {
	transitions Transitions
}

// NewWorkflow creates a workflow. A nil table allows every transition.
func NewWorkflow(t Transitions) *Workflow {
	return &Workflow{transitions: t}
}

// Transition validates and applies a status change, returning the new order.
func (w *Workflow) Transition(order model.Order, status string) (model.Order, error) {
	if !IsKnown(status) {
		return order, model.NewValidationError(model.FieldError{Field: "status", Message: fmt.Sprintf("unknown order status %q", status)})
	}
	if err := w.transitions.Check(order.Status, status); err != nil {
		return order, model.NewValidationError(model.FieldError{Field: "status", Message: err.Error()})
	}
	return UpdateStatus(order, status), nil
}

// Transitions returns the configured table, nil when unrestricted.
func (w *Workflow) Transitions() Transitions { return w.transitions }
