package resolwe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"resolwe-go/sdk/pkg/models"
)

const outputPrefix = "output."

// Parents lists the data objects whose outputs were inputs of data id.
func (t *Tracker) Parents(ctx context.Context, id int) ([]models.Data, error) {
	return t.related(ctx, id, "parents")
}

// Children lists the data objects that consumed data id as an input.
func (t *Tracker) Children(ctx context.Context, id int) ([]models.Data, error) {
	return t.related(ctx, id, "children")
}

func (t *Tracker) related(ctx context.Context, id int, relation string) ([]models.Data, error) {
	endpoint := endpointData + "/" + strconv.Itoa(id) + "/" + relation
	payload, err := t.client.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Data](endpoint, payload)
}

// Files lists the file paths produced by d, relative to its data
// directory. fieldName limits the walk to one output field, with or
// without the "output." prefix. fileName keeps only file or directory
// entries with that exact name. File outputs come first, followed by the
// recursive listing of every directory output.
func (t *Tracker) Files(ctx context.Context, d *models.Data, fileName, fieldName string) ([]string, error) {
	process, err := t.client.Processes.GetByID(ctx, d.Process.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load process of data %d: %w", d.ID, err)
	}
	if fieldName != "" && !strings.HasPrefix(fieldName, outputPrefix) {
		fieldName = outputPrefix + fieldName
	}

	var files, dirs []string
	for _, field := range flattenOutput(process.OutputSchema, d.Output, outputPrefix) {
		if fieldName != "" && field.path != fieldName {
			continue
		}
		switch field.field.Kind() {
		case models.KindFile:
			found, err := field.entries("file", fileName)
			if err != nil {
				return nil, fmt.Errorf("data %d: %w", d.ID, err)
			}
			files = append(files, found...)
		case models.KindDir:
			found, err := field.entries("dir", fileName)
			if err != nil {
				return nil, fmt.Errorf("data %d: %w", d.ID, err)
			}
			dirs = append(dirs, found...)
		}
	}

	for _, dir := range dirs {
		listed, err := t.dirFiles(ctx, d.ID, dir)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}
	return files, nil
}

type outputField struct {
	path  string
	field *models.PrimitiveField
	value any
}

// flattenOutput pairs every primitive schema field that has a non-null
// value in output with its dotted path. Groups are descended into.
func flattenOutput(s models.Schema, output map[string]any, prefix string) []outputField {
	var out []outputField
	for _, f := range s {
		value, ok := output[f.FieldName()]
		if !ok || value == nil {
			continue
		}
		switch field := f.(type) {
		case *models.GroupField:
			nested, _ := value.(map[string]any)
			out = append(out, flattenOutput(field.Fields, nested, prefix+field.Name+".")...)
		case *models.ChoiceField:
			out = append(out, outputField{path: prefix + field.Name, field: &field.PrimitiveField, value: value})
		case *models.PrimitiveField:
			out = append(out, outputField{path: prefix + field.Name, field: field, value: value})
		}
	}
	return out
}

// entries returns the key entry of each element of the field value,
// keeping only those equal to name when name is set.
func (f outputField) entries(key, name string) ([]string, error) {
	items := []any{f.value}
	if f.field.IsList() {
		list, ok := f.value.([]any)
		if !ok {
			return nil, fmt.Errorf("output field %s: expected a list, got %T", f.path, f.value)
		}
		items = list
	}

	var out []string
	for _, item := range items {
		obj, _ := item.(map[string]any)
		entry, ok := obj[key].(string)
		if !ok {
			return nil, fmt.Errorf("output field %s: element has no %q entry", f.path, key)
		}
		if name == "" || name == entry {
			out = append(out, entry)
		}
	}
	return out, nil
}

type dirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// dirFiles walks a directory output through the server's data file
// listing, which lives outside the API prefix.
func (t *Tracker) dirFiles(ctx context.Context, id int, dir string) ([]string, error) {
	u := *t.client.baseURL
	u.Path = u.Path + "/" + endpointData + "/" + strconv.Itoa(id) + "/" + strings.Trim(dir, "/") + "/"

	payload, err := t.client.send(ctx, http.MethodGet, endpointData, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var entries []dirEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode listing of %s in data %d: %w", dir, id, err)
	}

	var files, subdirs []string
	for _, e := range entries {
		p := dir + "/" + e.Name
		if e.Type == "directory" {
			subdirs = append(subdirs, p)
			continue
		}
		files = append(files, p)
	}
	for _, sub := range subdirs {
		nested, err := t.dirFiles(ctx, id, sub)
		if err != nil {
			return nil, err
		}
		files = append(files, nested...)
	}
	return files, nil
}
