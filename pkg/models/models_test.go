package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const abyssProcess = `{
	"id": 7,
	"slug": "assembler-abyss",
	"name": "ABySS assembler",
	"version": "1.2.0",
	"category": "Assemblers",
	"input_schema": [
		{"name": "se", "label": "Single-end reads", "type": "data:reads:fastq:single:"},
		{"name": "options", "label": "Options", "group": [
			{"name": "k", "label": "k-mer size", "type": "basic:integer:", "default": 25},
			{"name": "mode", "label": "Mode", "type": "basic:string:", "required": false,
			 "choices": [{"label": "Fast", "value": "fast"}, {"label": "Full", "value": "full"}]}
		]}
	],
	"output_schema": [
		{"name": "contigs", "label": "Contigs", "type": "basic:file:"}
	]
}`

func TestProcessDecodesSchemaTree(t *testing.T) {
	var p Process
	require.NoError(t, json.Unmarshal([]byte(abyssProcess), &p))

	assert.Equal(t, "assembler-abyss", p.Slug)
	require.Len(t, p.InputSchema, 2)

	se, ok := p.InputSchema[0].(*PrimitiveField)
	require.True(t, ok)
	assert.True(t, se.Required, "omitted required means required")
	assert.Equal(t, KindData, se.Kind())
	assert.False(t, se.IsList())

	opts, ok := p.InputSchema[1].(*GroupField)
	require.True(t, ok)
	require.Len(t, opts.Fields, 2)

	k := opts.Fields[0].(*PrimitiveField)
	assert.True(t, k.HasDefault)
	assert.Equal(t, float64(25), k.Default)

	mode, ok := opts.Fields[1].(*ChoiceField)
	require.True(t, ok)
	assert.False(t, mode.Required)
	assert.Len(t, mode.Choices, 2)

	f, ok := p.OutputSchema.Find("contigs")
	require.True(t, ok)
	assert.Equal(t, KindFile, f.(*PrimitiveField).Kind())
}

func TestSchemaRoundTrip(t *testing.T) {
	var p Process
	require.NoError(t, json.Unmarshal([]byte(abyssProcess), &p))

	b, err := json.Marshal(p.InputSchema)
	require.NoError(t, err)

	var again Schema
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, p.InputSchema, again)
}

func TestSchemaRejectsNamelessField(t *testing.T) {
	var s Schema
	err := json.Unmarshal([]byte(`[{"type": "basic:string:"}]`), &s)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	cases := map[string]struct {
		kind Kind
		list bool
	}{
		"basic:integer:":           {KindInteger, false},
		"list:basic:integer:":      {KindInteger, true},
		"list:data:alignment:bam:": {KindData, true},
		"basic:file:html:":         {KindFile, false},
		"basic:url:download:":      {KindURL, false},
		"basic:something:exotic:":  {KindUnknown, false},
		"basic:datetime:":          {KindDateTime, false},
		"data:reads:fastq:single:": {KindData, false},
	}
	for typ, want := range cases {
		kind, list := ParseType(typ)
		assert.Equal(t, want.kind, kind, typ)
		assert.Equal(t, want.list, list, typ)
	}
}

func TestStatusPhase(t *testing.T) {
	assert.Equal(t, PhasePending, StatusResolving.Phase())
	assert.Equal(t, PhasePreparing, StatusPreparing.Phase())
	assert.Equal(t, PhaseRunning, StatusProcessing.Phase())
	assert.Equal(t, PhaseSucceeded, StatusDone.Phase())
	assert.Equal(t, PhaseFailed, StatusDirty.Phase())
	assert.Equal(t, PhaseUnknown, Status("ZZ").Phase())

	for _, s := range []Status{StatusDone, StatusError, StatusDirty} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []Status{StatusUploading, StatusResolving, StatusWaiting, StatusPreparing, StatusProcessing} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestDataDecodesReferences(t *testing.T) {
	var d Data
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42, "process": {"id": 7, "slug": "assembler-abyss"},
		"collection": 3, "status": "PR", "process_progress": 40,
		"input": {"se": 11}, "output": {}, "started": null,
		"created": "2024-05-01T10:00:00.123456Z", "modified": "2024-05-01T10:05:00Z"
	}`), &d))

	assert.Equal(t, 42, d.DataID())
	assert.Equal(t, Ref{ID: 7, Slug: "assembler-abyss"}, d.Process)
	require.NotNil(t, d.Collection)
	assert.Equal(t, 3, d.Collection.ID)
	assert.Nil(t, d.Started)
	assert.Equal(t, float64(40), d.Progress)
	assert.False(t, d.Done())
}
