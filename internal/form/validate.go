package form

import (
	"fmt"
	"strings"

	"kart-admin/internal/model"
)

// validateFields checks and coerces every schema field of draft. The returned
// copy holds the coerced values; errors are in schema order.
func validateFields(schema Schema, draft model.Fields) (model.Fields, []model.FieldError) {
	out := draft.Clone()
	if out == nil {
		out = model.Fields{}
	}
	var errs []model.FieldError

	for _, f := range schema.Fields {
		v := out[f.Name]
		if model.IsBlank(v) {
			if f.Required {
				errs = append(errs, model.FieldError{Field: f.Name, Message: requiredMessage(f)})
			} else if f.Kind == Reference {
				out[f.Name] = nil
			}
			continue
		}

		coerced, msg := coerce(f, v)
		if msg != "" {
			errs = append(errs, model.FieldError{Field: f.Name, Message: msg})
			continue
		}
		out[f.Name] = coerced
	}
	return out, errs
}

func requiredMessage(f Field) string {
	if f.Message != "" {
		return f.Message
	}
	return "is required"
}

func coerce(f Field, v any) (any, string) {
	switch f.Kind {
	case Number:
		n, err := model.ToFloat(v)
		if err != nil {
			return nil, "must be a number"
		}
		if f.NonNegative && n < 0 {
			return nil, "must not be negative"
		}
		return n, ""
	case Integer:
		n, err := model.ToInt(v)
		if err != nil {
			return nil, "must be a whole number"
		}
		if f.NonNegative && n < 0 {
			return nil, "must not be negative"
		}
		return n, ""
	case Bool:
		b, err := model.ToBool(v)
		if err != nil {
			return nil, "must be true or false"
		}
		return b, ""
	case Enum:
		s, ok := asString(v)
		if !ok || !contains(f.Options, s) {
			return nil, "must be one of " + strings.Join(f.Options, ", ")
		}
		return s, ""
	case String, Image, Reference:
		s, ok := asString(v)
		if !ok {
			return nil, "must be text"
		}
		return strings.TrimSpace(s), ""
	case StringList, ImageList:
		list, err := model.ToStringSlice(v)
		if err != nil {
			return nil, "must be a list of text values"
		}
		return list, ""
	}
	return nil, fmt.Sprintf("has unsupported kind %s", f.Kind)
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
