package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Process is a runnable process definition. It is read-only for clients.
type Process struct {
	ID           int    `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Version      string `json:"version,omitempty"`
	Category     string `json:"category"`
	Type         string `json:"type,omitempty"`
	Description  string `json:"description,omitempty"`
	InputSchema  Schema `json:"input_schema"`
	OutputSchema Schema `json:"output_schema"`
}

// Collection groups data objects on the platform.
type Collection struct {
	ID          int      `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Ref is a reference to another resource. The platform serializes
// references either as a bare id or as a nested object, and both decode
// into a Ref.
type Ref struct {
	ID   int    `json:"id"`
	Slug string `json:"slug,omitempty"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts `42` as well as `{"id": 42, "slug": "..."}`.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		type plain Ref
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*r = Ref(p)
		return nil
	}
	var id int
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("failed to decode reference %s: %w", b, err)
	}
	*r = Ref{ID: id}
	return nil
}
