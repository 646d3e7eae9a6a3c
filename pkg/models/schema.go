package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the value category of a primitive field type.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindText
	KindInteger
	KindDecimal
	KindBoolean
	KindDate
	KindDateTime
	KindURL
	KindFile
	KindDir
	KindJSON
	KindData
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindString:   "string",
	KindText:     "text",
	KindInteger:  "integer",
	KindDecimal:  "decimal",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindURL:      "url",
	KindFile:     "file",
	KindDir:      "dir",
	KindJSON:     "json",
	KindData:     "data reference",
}

func (k Kind) String() string { return kindNames[k] }

// ParseType splits a platform type string such as "list:basic:integer:"
// or "data:reads:fastq:single:" into its kind and list flag.
func ParseType(t string) (Kind, bool) {
	list := false
	if strings.HasPrefix(t, "list:") {
		list = true
		t = strings.TrimPrefix(t, "list:")
	}
	switch {
	case strings.HasPrefix(t, "data:"):
		return KindData, list
	case t == "basic:string:", t == "basic:secret:":
		return KindString, list
	case t == "basic:text:":
		return KindText, list
	case t == "basic:integer:":
		return KindInteger, list
	case t == "basic:decimal:":
		return KindDecimal, list
	case t == "basic:boolean:":
		return KindBoolean, list
	case t == "basic:date:":
		return KindDate, list
	case t == "basic:datetime:":
		return KindDateTime, list
	case strings.HasPrefix(t, "basic:url:"):
		return KindURL, list
	case strings.HasPrefix(t, "basic:file:"):
		return KindFile, list
	case strings.HasPrefix(t, "basic:dir:"):
		return KindDir, list
	case t == "basic:json:":
		return KindJSON, list
	}
	return KindUnknown, list
}

// Field is one node of a schema tree. The concrete type is one of
// *PrimitiveField, *ChoiceField or *GroupField.
type Field interface {
	FieldName() string
	FieldLabel() string
	isField()
}

// PrimitiveField holds a scalar, list or data reference value.
type PrimitiveField struct {
	Name          string
	Label         string
	Type          string
	Description   string
	Required      bool
	Default       any
	HasDefault    bool
	ValidateRegex string
}

func (f *PrimitiveField) FieldName() string  { return f.Name }
func (f *PrimitiveField) FieldLabel() string { return f.Label }
func (*PrimitiveField) isField()             {}

// Kind returns the value category of the field.
func (f *PrimitiveField) Kind() Kind {
	k, _ := ParseType(f.Type)
	return k
}

// IsList reports whether the field holds a list of values.
func (f *PrimitiveField) IsList() bool {
	_, list := ParseType(f.Type)
	return list
}

// Choice is one permitted value of a ChoiceField.
type Choice struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ChoiceField is a primitive field restricted to an enumerated set.
type ChoiceField struct {
	PrimitiveField
	Choices []Choice
}

// GroupField nests an ordered set of child fields under one name.
type GroupField struct {
	Name   string
	Label  string
	Fields Schema
}

func (f *GroupField) FieldName() string  { return f.Name }
func (f *GroupField) FieldLabel() string { return f.Label }
func (*GroupField) isField()             {}

// Schema is an ordered sequence of field specifications.
type Schema []Field

// Find returns the top-level field with the given name.
func (s Schema) Find(name string) (Field, bool) {
	for _, f := range s {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

// wireField is the JSON shape of a field specification.
type wireField struct {
	Name          string          `json:"name"`
	Label         string          `json:"label,omitempty"`
	Type          string          `json:"type,omitempty"`
	Description   string          `json:"description,omitempty"`
	Required      *bool           `json:"required,omitempty"`
	Default       json.RawMessage `json:"default,omitempty"`
	ValidateRegex string          `json:"validate_regex,omitempty"`
	Choices       []Choice        `json:"choices,omitempty"`
	Group         *Schema         `json:"group,omitempty"`
}

// UnmarshalJSON decodes a JSON array of field specifications into the
// tagged tree. A field with a "group" key (or type "group") becomes a
// GroupField, one with "choices" a ChoiceField, anything else a
// PrimitiveField. An omitted "required" means required.
func (s *Schema) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = nil
		return nil
	}
	var raw []wireField
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}
	out := make(Schema, 0, len(raw))
	for i, w := range raw {
		if w.Name == "" {
			return fmt.Errorf("failed to decode schema: field %d has no name", i)
		}
		f, err := w.field()
		if err != nil {
			return fmt.Errorf("failed to decode schema field %q: %w", w.Name, err)
		}
		out = append(out, f)
	}
	*s = out
	return nil
}

func (w wireField) field() (Field, error) {
	if w.Group != nil || w.Type == "group" || w.Type == "basic:group:" {
		var children Schema
		if w.Group != nil {
			children = *w.Group
		}
		return &GroupField{Name: w.Name, Label: w.Label, Fields: children}, nil
	}

	p := PrimitiveField{
		Name:          w.Name,
		Label:         w.Label,
		Type:          w.Type,
		Description:   w.Description,
		Required:      true,
		ValidateRegex: w.ValidateRegex,
	}
	if w.Required != nil {
		p.Required = *w.Required
	}
	if len(w.Default) > 0 && !bytes.Equal(w.Default, []byte("null")) {
		if err := json.Unmarshal(w.Default, &p.Default); err != nil {
			return nil, err
		}
		p.HasDefault = true
	}
	if len(w.Choices) > 0 {
		return &ChoiceField{PrimitiveField: p, Choices: w.Choices}, nil
	}
	return &p, nil
}

// MarshalJSON encodes the tree back into the platform's array form.
func (s Schema) MarshalJSON() ([]byte, error) {
	raw := make([]wireField, 0, len(s))
	for _, f := range s {
		w, err := toWire(f)
		if err != nil {
			return nil, err
		}
		raw = append(raw, w)
	}
	return json.Marshal(raw)
}

func toWire(f Field) (wireField, error) {
	switch v := f.(type) {
	case *GroupField:
		children := v.Fields
		if children == nil {
			children = Schema{}
		}
		return wireField{Name: v.Name, Label: v.Label, Group: &children}, nil
	case *ChoiceField:
		w, err := primitiveToWire(&v.PrimitiveField)
		w.Choices = v.Choices
		return w, err
	case *PrimitiveField:
		return primitiveToWire(v)
	default:
		return wireField{}, fmt.Errorf("unsupported field type %T", f)
	}
}

func primitiveToWire(p *PrimitiveField) (wireField, error) {
	required := p.Required
	w := wireField{
		Name:          p.Name,
		Label:         p.Label,
		Type:          p.Type,
		Description:   p.Description,
		Required:      &required,
		ValidateRegex: p.ValidateRegex,
	}
	if p.HasDefault {
		b, err := json.Marshal(p.Default)
		if err != nil {
			return w, err
		}
		w.Default = b
	}
	return w, nil
}
