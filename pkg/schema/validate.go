// Package schema validates input mappings against a process input schema.
//
// Validation is a pure tree walk: it never performs I/O and never mutates
// the caller's mapping. References to other data objects are checked for
// shape only; the server verifies that they exist.
package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
)

// Platform wire formats for date and datetime values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// DataRef is implemented by values that identify an existing data object,
// such as *models.Data snapshots. They are replaced by their id.
type DataRef interface {
	DataID() int
}

// Validate checks input against s and returns a normalized copy: declared
// defaults filled in, unambiguous coercions applied and absent optional
// fields left out. The first violation is returned as an
// *errdefs.ValidationError naming the field path.
func Validate(s models.Schema, input map[string]any) (map[string]any, error) {
	return validateLevel(s, input, "")
}

func validateLevel(s models.Schema, input map[string]any, prefix string) (map[string]any, error) {
	if err := rejectUnknown(s, input, prefix); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(s))
	for _, f := range s {
		path := join(prefix, f.FieldName())
		value, present := input[f.FieldName()]
		if present && value == nil {
			present = false
		}

		switch field := f.(type) {
		case *models.GroupField:
			v, ok, err := validateGroup(field, value, present, path)
			if err != nil {
				return nil, err
			}
			if ok {
				out[field.Name] = v
			}
		case *models.ChoiceField:
			v, ok, err := validatePrimitive(&field.PrimitiveField, field.Choices, value, present, path)
			if err != nil {
				return nil, err
			}
			if ok {
				out[field.Name] = v
			}
		case *models.PrimitiveField:
			v, ok, err := validatePrimitive(field, nil, value, present, path)
			if err != nil {
				return nil, err
			}
			if ok {
				out[field.Name] = v
			}
		default:
			return nil, fail(path, fmt.Sprintf("unsupported field specification %T", f))
		}
	}
	return out, nil
}

func rejectUnknown(s models.Schema, input map[string]any, prefix string) error {
	var unknown []string
	for key := range input {
		if _, ok := s.Find(key); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fail(join(prefix, unknown[0]), "unknown field")
}

func validateGroup(f *models.GroupField, value any, present bool, path string) (any, bool, error) {
	var children map[string]any
	if present {
		m, ok := asMapping(value)
		if !ok {
			return nil, false, fail(path, fmt.Sprintf("expected a mapping, got %T", value))
		}
		children = m
	}
	out, err := validateLevel(f.Fields, children, path)
	if err != nil {
		return nil, false, err
	}
	if !present && len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func validatePrimitive(f *models.PrimitiveField, choices []models.Choice, value any, present bool, path string) (any, bool, error) {
	if !present {
		switch {
		case f.HasDefault:
			value = f.Default
		case f.Required:
			return nil, false, fail(path, "required field is missing")
		default:
			return nil, false, nil
		}
	}

	kind, list := models.ParseType(f.Type)
	var (
		normalized any
		err        error
	)
	if list {
		normalized, err = normalizeList(kind, value, path)
	} else {
		normalized, err = normalizeScalar(kind, value, path)
	}
	if err != nil {
		return nil, false, err
	}

	// Choices are checked before the validation pattern.
	if len(choices) > 0 {
		if err := checkChoices(kind, choices, normalized, path); err != nil {
			return nil, false, err
		}
	}
	if f.ValidateRegex != "" {
		if err := checkPattern(f.ValidateRegex, normalized, path); err != nil {
			return nil, false, err
		}
	}
	return normalized, true, nil
}

func normalizeList(kind models.Kind, value any, path string) (any, error) {
	items, ok := asSlice(value)
	if !ok {
		// A single value for a list field is wrapped.
		items = []any{value}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := normalizeScalar(kind, item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeScalar(kind models.Kind, value any, path string) (any, error) {
	switch kind {
	case models.KindString, models.KindText, models.KindURL:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case models.KindInteger:
		if n, ok := asInteger(value); ok {
			return n, nil
		}
	case models.KindDecimal:
		if f, ok := asFloat(value); ok {
			return f, nil
		}
	case models.KindBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case models.KindDate:
		return normalizeTime(value, DateLayout, path)
	case models.KindDateTime:
		return normalizeTime(value, DateTimeLayout, path)
	case models.KindFile:
		return normalizeFileRef(value, "file", path)
	case models.KindDir:
		return normalizeFileRef(value, "dir", path)
	case models.KindData:
		if ref, ok := value.(DataRef); ok {
			return int64(ref.DataID()), nil
		}
		if n, ok := asInteger(value); ok {
			return n, nil
		}
	case models.KindJSON, models.KindUnknown:
		return value, nil
	}
	return nil, fail(path, fmt.Sprintf("expected %s, got %T", kind, value))
}

func normalizeTime(value any, layout, path string) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(layout), nil
	case string:
		if _, err := time.Parse(layout, v); err != nil {
			return nil, fail(path, fmt.Sprintf("expected format %q, got %q", layout, v))
		}
		return v, nil
	}
	return nil, fail(path, fmt.Sprintf("expected a %q string, got %T", layout, value))
}

// normalizeFileRef accepts an uploaded file reference ({"file": ...}) or a
// bare name. Uploading local files is handled outside validation.
func normalizeFileRef(value any, key, path string) (any, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, fail(path, "empty "+key+" reference")
		}
		return v, nil
	default:
		m, ok := asMapping(value)
		if !ok {
			return nil, fail(path, fmt.Sprintf("expected a %s reference, got %T", key, value))
		}
		name, ok := m[key].(string)
		if !ok || name == "" {
			return nil, fail(path, fmt.Sprintf("%s reference has no %q entry", key, key))
		}
		return maps.Clone(m), nil
	}
}

func checkChoices(kind models.Kind, choices []models.Choice, value any, path string) error {
	values, isList := value.([]any)
	if !isList {
		values = []any{value}
	}
	for _, v := range values {
		if !inChoices(kind, choices, v) {
			return fail(path, fmt.Sprintf("value %v is not one of %s", v, formatChoices(choices)))
		}
	}
	return nil
}

func inChoices(kind models.Kind, choices []models.Choice, value any) bool {
	for _, c := range choices {
		allowed, err := normalizeScalar(kind, c.Value, "")
		if err != nil {
			allowed = c.Value
		}
		if reflect.DeepEqual(allowed, value) {
			return true
		}
	}
	return false
}

func formatChoices(choices []models.Choice) string {
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		parts = append(parts, fmt.Sprintf("%v", c.Value))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func checkPattern(pattern string, value any, path string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fail(path, fmt.Sprintf("schema declares an invalid validation rule %q", pattern))
	}
	values, isList := value.([]any)
	if !isList {
		values = []any{value}
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if !re.MatchString(s) {
			return fail(path, fmt.Sprintf("value %q does not match %q", s, pattern))
		}
	}
	return nil
}

func asInteger(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	if n, ok := asInteger(value); ok {
		return float64(n), true
	}
	return 0, false
}

func asMapping(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(value any) ([]any, bool) {
	if s, ok := value.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func fail(path, reason string) error {
	return &errdefs.ValidationError{Path: path, Reason: reason}
}
