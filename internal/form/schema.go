package form

import (
	"context"

	"kart-admin/internal/model"
	"kart-admin/internal/subcollection"
)

// Kind is the value type of a draft field.
type Kind int

const (
	String Kind = iota
	Number
	Integer
	Bool
	Enum
	// Reference holds the id of another entity, or nil.
	Reference
	StringList
	// Image is a single image slot holding one URL.
	Image
	// ImageList is an image slot holding an ordered list of URLs.
	ImageList
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	case Reference:
		return "reference"
	case StringList:
		return "string_list"
	case Image:
		return "image"
	case ImageList:
		return "image_list"
	}
	return "unknown"
}

// Field describes one draft field.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	NonNegative bool
	// Options lists the accepted values of an Enum field.
	Options []string
	// Default seeds the draft in Add mode.
	Default any
	// Message replaces the generic "is required" text.
	Message string
}

// Collection is a sub-collection editor as seen by the controller.
// *subcollection.Editor satisfies it.
type Collection interface {
	Name() string
	Len() int
	Defaultable() bool
	LoadFields(records []model.Fields)
	AddFields(f model.Fields) (string, error)
	Remove(id string) error
	SetDefault(id string) error
	Records() []model.Fields
	Payload() []model.Fields
	Freeze(reason string)
	Unfreeze()
}

// CollectionSpec describes one sub-collection of a resource. New is called
// on every Open so sessions never share an editor.
type CollectionSpec struct {
	Name string
	New  func() Collection
}

// CollectionOf returns a CollectionSpec backed by a typed subcollection editor.
func CollectionOf[T any, P subcollection.Item[T]](name, resource string) CollectionSpec {
	return CollectionSpec{
		Name: name,
		New: func() Collection {
			return subcollection.New[T, P](name, resource)
		},
	}
}

// PolicyInput is what a policy sees at submit time. Original is the zero
// entity in Add mode.
type PolicyInput struct {
	Resource    model.ResourceType
	Mode        Mode
	Draft       model.Fields
	Original    model.Entity
	Collections map[string][]model.Fields
}

// Policy is an extra submit-time check supplied by the caller. Field errors
// fail validation; a returned error aborts the submit as is.
type Policy interface {
	Check(ctx context.Context, in PolicyInput) ([]model.FieldError, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, in PolicyInput) ([]model.FieldError, error)

func (f PolicyFunc) Check(ctx context.Context, in PolicyInput) ([]model.FieldError, error) {
	return f(ctx, in)
}

// Schema describes one resource screen.
type Schema struct {
	Resource    model.ResourceType
	Fields      []Field
	Collections []CollectionSpec
	Policies    []Policy
}

// Field returns the descriptor of name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// WithPolicies returns a copy of s with extra policies appended.
func (s Schema) WithPolicies(policies ...Policy) Schema {
	out := s
	out.Policies = append(append([]Policy(nil), s.Policies...), policies...)
	return out
}

func (s Schema) defaults() model.Fields {
	draft := model.Fields{}
	for _, f := range s.Fields {
		if f.Default != nil {
			draft[f.Name] = f.Default
		}
	}
	return draft.Clone()
}
