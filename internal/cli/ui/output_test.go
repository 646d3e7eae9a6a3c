package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolwe-go/sdk/pkg/models"
)

func init() {
	color.NoColor = true
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "OK (succeeded)", Status(models.StatusDone))
	assert.Equal(t, "DR (failed)", Status(models.StatusDirty))
	assert.Equal(t, "XX (unknown)", Status("XX"))
	assert.Equal(t, " 50%", Progress(0.5))
}

func TestEncodeYAMLKeepsWireNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, &models.Data{ID: 4, Status: models.StatusProcessing, Progress: 0.25}))
	out := buf.String()
	assert.Contains(t, out, "id: 4")
	assert.Contains(t, out, "status: PR")
	assert.Contains(t, out, "process_progress: 0.25")

	assert.Error(t, Encode(&buf, "xml", nil))
}

func TestSchemaTree(t *testing.T) {
	schema := models.Schema{
		&models.PrimitiveField{Name: "reads", Type: "data:reads:fastq:", Required: true},
		&models.GroupField{Name: "options", Fields: models.Schema{
			&models.ChoiceField{
				PrimitiveField: models.PrimitiveField{Name: "mode", Type: "basic:string:", Default: "pe", HasDefault: true},
				Choices:        []models.Choice{{Value: "se"}, {Value: "pe"}},
			},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, SchemaTree(&buf, schema))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "reads"))
	assert.Contains(t, lines[1], "yes")
	assert.True(t, strings.HasPrefix(lines[2], "options"))
	assert.True(t, strings.HasPrefix(lines[3], "  mode"))
	assert.Contains(t, lines[3], "basic:string: {se|pe}")
}
