package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"resolwe-go/sdk/pkg/models"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		// Round trip through JSON so the wire field names are kept.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// ProcessTable writes one row per process.
func ProcessTable(w io.Writer, processes []models.Process) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tVERSION\tCATEGORY\tNAME")
	for _, p := range processes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Slug, p.Version, p.Category, p.Name)
	}
	return tw.Flush()
}

// DataTable writes one row per data snapshot.
func DataTable(w io.Writer, data []*models.Data) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tNAME")
	for _, d := range data {
		PrintDataLine(tw, d)
	}
	return tw.Flush()
}

// SchemaTree writes the fields of s, nesting groups by indentation.
func SchemaTree(w io.Writer, s models.Schema) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tREQUIRED\tDEFAULT\tLABEL")
	writeFields(tw, s, 0)
	return tw.Flush()
}

func writeFields(w io.Writer, s models.Schema, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range s {
		switch f := f.(type) {
		case *models.GroupField:
			fmt.Fprintf(w, "%s%s\tgroup\t\t\t%s\n", indent, f.Name, f.Label)
			writeFields(w, f.Fields, depth+1)
		case *models.ChoiceField:
			writePrimitive(w, indent, &f.PrimitiveField, choiceValues(f.Choices))
		case *models.PrimitiveField:
			writePrimitive(w, indent, f, "")
		}
	}
}

func writePrimitive(w io.Writer, indent string, f *models.PrimitiveField, choices string) {
	required := "no"
	if f.Required {
		required = "yes"
	}
	def := ""
	if f.HasDefault {
		def = fmt.Sprint(f.Default)
	}
	typ := f.Type
	if choices != "" {
		typ += " " + choices
	}
	fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", indent, f.Name, typ, required, def, f.Label)
}

func choiceValues(choices []models.Choice) string {
	values := make([]string, 0, len(choices))
	for _, c := range choices {
		values = append(values, fmt.Sprint(c.Value))
	}
	return "{" + strings.Join(values, "|") + "}"
}
