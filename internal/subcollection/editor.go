// Package subcollection edits an ordered list of child records (variants,
// addresses, line items) that belongs to one parent form session. Nothing is
// persisted here: the finalized list travels with the parent submit.
package subcollection

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"kart-admin/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers assigned locally by Add. Durable ids are
// assigned by the persistence client.
const TempIDPrefix = "tmp-"

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report json names so field errors match the payload keys.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Item is the pointer constraint for records held by an Editor.
type Item[T any] interface {
	*T
	ItemID() string
	SetItemID(id string)
	// FromFields decodes f and returns the fields that could not be coerced.
	FromFields(f model.Fields) []model.FieldError
	ToFields() model.Fields
}

// Defaultable records carry an "is default" flag; at most one record of an
// editor holds it.
type Defaultable interface {
	IsDefaultRecord() bool
	SetDefaultRecord(v bool)
}

// IsTemporaryID reports whether id was assigned by Add.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Editor holds the records of one sub-collection.
type Editor[T any, P Item[T]] struct {
	mu       sync.Mutex
	name     string
	resource string
	records  []T
	frozen   string
}

// New creates an empty editor. name is the payload key (e.g. "productVariants")
// and resource is used in error messages (e.g. "variant").
func New[T any, P Item[T]](name, resource string) *Editor[T, P] {
	return &Editor[T, P]{name: name, resource: resource}
}

// Name returns the payload key of the collection.
func (e *Editor[T, P]) Name() string { return e.name }

// Defaultable reports whether records of this editor carry a default flag.
func (e *Editor[T, P]) Defaultable() bool {
	var zero T
	_, ok := any(P(&zero)).(Defaultable)
	return ok
}

// Load replaces the contents with copies of records. When more than one
// record is flagged default only the first keeps the flag.
func (e *Editor[T, P]) Load(records []T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = append([]T(nil), records...)
	e.normaliseDefault(-1)
}

// LoadFields replaces the contents with records decoded from stored fields.
// Stored values that fail to coerce load as zero.
func (e *Editor[T, P]) LoadFields(records []model.Fields) {
	decoded := make([]T, len(records))
	for i, f := range records {
		_ = P(&decoded[i]).FromFields(f)
	}
	e.Load(decoded)
}

// Add validates record, assigns it a temporary id and appends it. A record
// added with the default flag set takes the flag from its siblings.
func (e *Editor[T, P]) Add(record T) (string, error) {
	if err := validateRecord(record); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable("add"); err != nil {
		return "", err
	}

	id := TempIDPrefix + uuid.NewString()
	P(&record).SetItemID(id)
	e.records = append(e.records, record)
	e.normaliseDefault(len(e.records) - 1)
	return id, nil
}

// AddFields decodes f and adds it. Values that cannot be coerced fail the
// add with a ValidationError naming them, together with any other invalid
// field of the record.
func (e *Editor[T, P]) AddFields(f model.Fields) (string, error) {
	var record T
	bad := P(&record).FromFields(f)
	if len(bad) == 0 {
		return e.Add(record)
	}

	fields := append([]model.FieldError(nil), bad...)
	var verr *model.ValidationError
	if errors.As(validateRecord(record), &verr) {
		for _, fe := range verr.Fields {
			if !hasField(bad, fe.Field) {
				fields = append(fields, fe)
			}
		}
	}
	return "", model.NewValidationError(fields...)
}

func hasField(fields []model.FieldError, name string) bool {
	for _, fe := range fields {
		if fe.Field == name {
			return true
		}
	}
	return false
}

// Remove deletes the record with id.
func (e *Editor[T, P]) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable("remove"); err != nil {
		return err
	}

	i := e.indexOf(id)
	if i < 0 {
		return &model.NotFoundError{Resource: e.resource, ID: id}
	}
	e.records = append(e.records[:i], e.records[i+1:]...)
	return nil
}

// SetDefault flags the record with id as the default and clears the flag on
// every sibling in one step.
func (e *Editor[T, P]) SetDefault(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable("set default"); err != nil {
		return err
	}
	if !e.Defaultable() {
		return &model.InvalidOperationError{Op: "set default", Reason: e.resource + " records have no default flag"}
	}

	i := e.indexOf(id)
	if i < 0 {
		return &model.NotFoundError{Resource: e.resource, ID: id}
	}

	next := append([]T(nil), e.records...)
	for j := range next {
		any(P(&next[j])).(Defaultable).SetDefaultRecord(j == i)
	}
	e.records = next
	return nil
}

// Get returns a copy of the record with id.
func (e *Editor[T, P]) Get(id string) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	i := e.indexOf(id)
	if i < 0 {
		return zero, false
	}
	return e.records[i], true
}

// Default returns the record holding the default flag, if any.
func (e *Editor[T, P]) Default() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	for i := range e.records {
		if d, ok := any(P(&e.records[i])).(Defaultable); ok && d.IsDefaultRecord() {
			return e.records[i], true
		}
	}
	return zero, false
}

// Len returns the number of records.
func (e *Editor[T, P]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

// ToList returns a copy of the current ordered records.
func (e *Editor[T, P]) ToList() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T{}, e.records...)
}

// Records returns the records as fields, ids included, for display.
func (e *Editor[T, P]) Records() []model.Fields {
	list := e.ToList()
	out := make([]model.Fields, len(list))
	for i := range list {
		f := P(&list[i]).ToFields()
		f["id"] = P(&list[i]).ItemID()
		out[i] = f
	}
	return out
}

// Payload returns the finalized records in submit shape, without ids.
func (e *Editor[T, P]) Payload() []model.Fields {
	list := e.ToList()
	out := make([]model.Fields, len(list))
	for i := range list {
		out[i] = P(&list[i]).ToFields()
	}
	return out
}

// Freeze rejects every mutation with reason until Unfreeze.
func (e *Editor[T, P]) Freeze(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = reason
}

// Unfreeze re-enables mutations.
func (e *Editor[T, P]) Unfreeze() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = ""
}

func (e *Editor[T, P]) checkWritable(op string) error {
	if e.frozen != "" {
		return &model.InvalidOperationError{Op: op + " " + e.resource, Reason: e.frozen}
	}
	return nil
}

func (e *Editor[T, P]) indexOf(id string) int {
	for i := range e.records {
		if P(&e.records[i]).ItemID() == id {
			return i
		}
	}
	return -1
}

// normaliseDefault keeps at most one default. keep, when >= 0 and flagged,
// wins; otherwise the first flagged record does.
func (e *Editor[T, P]) normaliseDefault(keep int) {
	if !e.Defaultable() {
		return
	}
	winner := -1
	if keep >= 0 && any(P(&e.records[keep])).(Defaultable).IsDefaultRecord() {
		winner = keep
	}
	for i := range e.records {
		d := any(P(&e.records[i])).(Defaultable)
		if !d.IsDefaultRecord() {
			continue
		}
		if winner < 0 {
			winner = i
		}
		if i != winner {
			d.SetDefaultRecord(false)
		}
	}
}

func validateRecord(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return model.NewValidationError(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "hexcolor":
		return "must be a hex colour such as #ff0000"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
