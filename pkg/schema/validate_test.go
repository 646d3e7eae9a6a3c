package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
)

func mustSchema(t *testing.T, raw string) models.Schema {
	t.Helper()
	var s models.Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return s
}

func requireValidationError(t *testing.T, err error, path string) *errdefs.ValidationError {
	t.Helper()
	require.Error(t, err)
	var verr *errdefs.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, path, verr.Path)
	return verr
}

func TestReferenceFieldShapeOnly(t *testing.T) {
	s := mustSchema(t, `[{"name": "se", "type": "data:reads:fastq", "required": true}]`)

	out, err := Validate(s, map[string]any{"se": 42})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"se": int64(42)}, out)

	_, err = Validate(s, map[string]any{})
	verr := requireValidationError(t, err, "se")
	assert.Equal(t, "required field is missing", verr.Reason)

	_, err = Validate(s, map[string]any{"se": "reads.fastq"})
	requireValidationError(t, err, "se")
}

func TestReferenceDehydratesSnapshots(t *testing.T) {
	s := mustSchema(t, `[{"name": "bams", "type": "list:data:alignment:bam:"}]`)

	out, err := Validate(s, map[string]any{"bams": []any{&models.Data{ID: 3}, 4.0}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(4)}, out["bams"])
}

const assemblerSchema = `[
	{"name": "se", "type": "data:reads:fastq:single:"},
	{"name": "label", "type": "basic:string:", "required": false, "validate_regex": "^[a-z]+$"},
	{"name": "options", "group": [
		{"name": "k", "type": "basic:integer:", "default": 25},
		{"name": "ratio", "type": "basic:decimal:", "required": false},
		{"name": "mode", "type": "basic:string:", "default": "fast",
		 "choices": [{"label": "Fast", "value": "fast"}, {"label": "Full", "value": "full"}]},
		{"name": "paired", "type": "basic:boolean:", "required": false}
	]}
]`

func TestNormalizedMappingHasDeclaredAndDefaultedFieldsOnly(t *testing.T) {
	s := mustSchema(t, assemblerSchema)

	out, err := Validate(s, map[string]any{"se": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"se": int64(1),
		"options": map[string]any{
			"k":    int64(25),
			"mode": "fast",
		},
	}, out)
}

func TestInputIsNotMutated(t *testing.T) {
	s := mustSchema(t, assemblerSchema)
	input := map[string]any{"se": 1, "options": map[string]any{"ratio": 2}}

	out, err := Validate(s, input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"se": 1, "options": map[string]any{"ratio": 2}}, input)
	assert.Equal(t, float64(2), out["options"].(map[string]any)["ratio"])
}

func TestGroupMustBeMapping(t *testing.T) {
	s := mustSchema(t, assemblerSchema)
	_, err := Validate(s, map[string]any{"se": 1, "options": "fast"})
	requireValidationError(t, err, "options")
}

func TestNestedRequiredFieldPath(t *testing.T) {
	s := mustSchema(t, `[{"name": "reads", "group": [{"name": "fwd", "type": "data:reads:fastq:"}]}]`)

	_, err := Validate(s, map[string]any{})
	requireValidationError(t, err, "reads.fwd")

	_, err = Validate(s, map[string]any{"reads": map[string]any{}})
	requireValidationError(t, err, "reads.fwd")
}

func TestUnknownFieldsRejected(t *testing.T) {
	s := mustSchema(t, assemblerSchema)

	_, err := Validate(s, map[string]any{"sr": 1})
	verr := requireValidationError(t, err, "sr")
	assert.Equal(t, "unknown field", verr.Reason)

	_, err = Validate(s, map[string]any{"se": 1, "options": map[string]any{"kmer": 31}})
	requireValidationError(t, err, "options.kmer")
}

func TestTypeMismatch(t *testing.T) {
	s := mustSchema(t, assemblerSchema)

	cases := []struct {
		name  string
		input map[string]any
		path  string
	}{
		{"fractional integer", map[string]any{"se": 1, "options": map[string]any{"k": 25.5}}, "options.k"},
		{"string integer", map[string]any{"se": 1, "options": map[string]any{"k": "25"}}, "options.k"},
		{"number as string", map[string]any{"se": 1, "label": 5}, "label"},
		{"string as boolean", map[string]any{"se": 1, "options": map[string]any{"paired": "yes"}}, "options.paired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(s, tc.input)
			requireValidationError(t, err, tc.path)
		})
	}
}

func TestUnambiguousCoercions(t *testing.T) {
	s := mustSchema(t, `[
		{"name": "n", "type": "basic:integer:"},
		{"name": "x", "type": "basic:decimal:"},
		{"name": "day", "type": "basic:date:"},
		{"name": "tags", "type": "list:basic:string:"}
	]`)

	out, err := Validate(s, map[string]any{
		"n":    json.Number("7"),
		"x":    3,
		"day":  time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
		"tags": "single",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), out["n"])
	assert.Equal(t, float64(3), out["x"])
	assert.Equal(t, "2024-05-01", out["day"])
	assert.Equal(t, []any{"single"}, out["tags"])

	out, err = Validate(s, map[string]any{"n": 1, "x": 1, "day": "2024-05-01", "tags": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out["tags"])

	_, err = Validate(s, map[string]any{"n": 1, "x": 1, "day": "01/05/2024", "tags": "a"})
	requireValidationError(t, err, "day")
}

func TestListElementPath(t *testing.T) {
	s := mustSchema(t, `[{"name": "sizes", "type": "list:basic:integer:"}]`)
	_, err := Validate(s, map[string]any{"sizes": []any{1, 2, "three"}})
	requireValidationError(t, err, "sizes[2]")
}

func TestChoicesAndPattern(t *testing.T) {
	s := mustSchema(t, assemblerSchema)

	_, err := Validate(s, map[string]any{"se": 1, "options": map[string]any{"mode": "turbo"}})
	verr := requireValidationError(t, err, "options.mode")
	assert.Contains(t, verr.Reason, "not one of")

	_, err = Validate(s, map[string]any{"se": 1, "label": "Sample-1"})
	verr = requireValidationError(t, err, "label")
	assert.Contains(t, verr.Reason, "does not match")

	_, err = Validate(s, map[string]any{"se": 1, "label": "sample"})
	assert.NoError(t, err)
}

func TestChoicesCheckedBeforePattern(t *testing.T) {
	s := mustSchema(t, `[{"name": "m", "type": "basic:string:", "validate_regex": "^a",
		"choices": [{"label": "A", "value": "alpha"}]}]`)

	_, err := Validate(s, map[string]any{"m": "beta"})
	verr := requireValidationError(t, err, "m")
	assert.Contains(t, verr.Reason, "not one of")
}

func TestIntegerChoicesCompareAfterNormalization(t *testing.T) {
	s := mustSchema(t, `[{"name": "ploidy", "type": "basic:integer:",
		"choices": [{"label": "haploid", "value": 1}, {"label": "diploid", "value": 2}]}]`)

	out, err := Validate(s, map[string]any{"ploidy": 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out["ploidy"])
}

func TestFileReference(t *testing.T) {
	s := mustSchema(t, `[{"name": "src", "type": "basic:file:"}]`)

	out, err := Validate(s, map[string]any{"src": map[string]any{"file": "reads.fq", "file_temp": "abc"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"file": "reads.fq", "file_temp": "abc"}, out["src"])

	_, err = Validate(s, map[string]any{"src": map[string]any{"name": "reads.fq"}})
	requireValidationError(t, err, "src")
}

func TestNullValueIsAbsent(t *testing.T) {
	s := mustSchema(t, assemblerSchema)
	out, err := Validate(s, map[string]any{"se": 1, "label": nil})
	require.NoError(t, err)
	_, ok := out["label"]
	assert.False(t, ok)
}

func TestInvalidSchemaPattern(t *testing.T) {
	s := mustSchema(t, `[{"name": "x", "type": "basic:string:", "validate_regex": "(["}]`)
	_, err := Validate(s, map[string]any{"x": "a"})
	requireValidationError(t, err, "x")
}
