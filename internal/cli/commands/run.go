package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"resolwe-go/sdk/internal/cli/ui"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

var (
	runInputFile  string
	runSets       []string
	runName       string
	runCollection int
	runTags       []string
	runWait       bool
	runReuse      bool
)

var runCmd = &cobra.Command{
	Use:   "run <slug>",
	Short: "Validate inputs and start a run of a process",
	Long: `Resolve the latest version of a process, validate the inputs against its
schema and create one data object. Nothing is sent when validation fails.

--set values are parsed as YAML. A value assigned to a string or text
field is kept verbatim, so --set name=1.0 sends "1.0".

With --reuse the platform returns an existing data object of the same
process and input instead of starting another run. --name, --collection and
--tag are ignored then.`,
	Example: `  $ resolwe run upload-fastq-single -f reads.yaml
  $ resolwe run alignment-bwa-mem --set genome=12 --set reads=34 --set options.seed=19 --wait
  $ resolwe run alignment-bwa-mem -f inputs.yaml --reuse`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runInputFile, "file", "f", "", "YAML or JSON file with the input values")
	flags.StringArrayVar(&runSets, "set", nil, "Set one input value, e.g. options.seed=19 (repeatable)")
	flags.StringVar(&runName, "name", "", "Name of the data object (default <slug>-<random>)")
	flags.IntVar(&runCollection, "collection", 0, "Add the data object to this collection id")
	flags.StringSliceVar(&runTags, "tag", nil, "Tags for the data object")
	flags.BoolVarP(&runWait, "wait", "w", false, "Wait until the run finishes")
	flags.BoolVar(&runReuse, "reuse", false, "Reuse an existing data object with the same input")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	input, err := readInput(runInputFile, runSets)
	if err != nil {
		return err
	}

	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	slug := args[0]
	if len(runSets) > 0 {
		process, err := e.runs.GetProcess(cmd.Context(), slug)
		if err != nil {
			return err
		}
		if err := keepStringSets(process.InputSchema, input, runSets); err != nil {
			return err
		}
	}

	var data *models.Data
	if runReuse {
		if data, err = e.runs.GetOrRun(cmd.Context(), slug, input); err != nil {
			return err
		}
		ui.PrintSuccess("using data %d (%s)", data.ID, ui.Status(data.Status))
	} else {
		name := runName
		if name == "" {
			name = fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
		}
		data, err = e.runs.Run(cmd.Context(), slug, input, resolwe.InvokeOptions{
			Name:       name,
			Collection: runCollection,
			Tags:       runTags,
		})
		if err != nil {
			return err
		}
		ui.PrintSuccess("created data %d (%s)", data.ID, name)
	}

	if runWait {
		out := cmd.OutOrStdout()
		data, err = e.runs.Wait(cmd.Context(), data.ID, func(d *models.Data) {
			if outputFormat == ui.FormatTable {
				ui.PrintDataLine(out, d)
			}
		})
		if err != nil {
			return err
		}
		if outputFormat == ui.FormatTable {
			return runOutcome(data)
		}
	}
	if outputFormat != ui.FormatTable {
		return ui.Encode(cmd.OutOrStdout(), outputFormat, data)
	}
	if !runWait {
		ui.PrintDataLine(cmd.OutOrStdout(), data)
	}
	return nil
}

func runOutcome(d *models.Data) error {
	if d.Status.Phase() == models.PhaseFailed {
		return fmt.Errorf("data %d finished with status %s: %s", d.ID, d.Status, strings.Join(d.Error, "; "))
	}
	return nil
}

// readInput merges the input file with --set assignments, which win.
func readInput(path string, sets []string) (map[string]any, error) {
	input := map[string]any{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
		}
		if input == nil {
			input = map[string]any{}
		}
	}
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", s)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if err := setPath(input, strings.Split(key, "."), value); err != nil {
			return nil, err
		}
	}
	return input, nil
}

// keepStringSets restores the raw text of --set values that target string
// or text fields but were parsed as another YAML type.
func keepStringSets(s models.Schema, input map[string]any, sets []string) error {
	for _, set := range sets {
		key, raw, _ := strings.Cut(set, "=")
		path := strings.Split(key, ".")
		if !stringField(s, path) {
			continue
		}
		if _, ok := lookupPath(input, path).(string); ok {
			continue
		}
		if err := setPath(input, path, raw); err != nil {
			return err
		}
	}
	return nil
}

func stringField(s models.Schema, path []string) bool {
	for i, part := range path {
		f, ok := s.Find(part)
		if !ok {
			return false
		}
		if i < len(path)-1 {
			group, ok := f.(*models.GroupField)
			if !ok {
				return false
			}
			s = group.Fields
			continue
		}
		var p *models.PrimitiveField
		switch field := f.(type) {
		case *models.PrimitiveField:
			p = field
		case *models.ChoiceField:
			p = &field.PrimitiveField
		default:
			return false
		}
		k := p.Kind()
		return !p.IsList() && (k == models.KindString || k == models.KindText)
	}
	return false
}

func lookupPath(m map[string]any, path []string) any {
	var v any = m
	for _, part := range path {
		child, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = child[part]
	}
	return v
}

func setPath(m map[string]any, path []string, value any) error {
	for i, part := range path[:len(path)-1] {
		next, ok := m[part]
		if !ok {
			child := map[string]any{}
			m[part] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %s: %s is not a group", strings.Join(path, "."), strings.Join(path[:i+1], "."))
		}
		m = child
	}
	m[path[len(path)-1]] = value
	return nil
}
