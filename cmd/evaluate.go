package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate BOE inputs without saving a run",
	Long:  "Runs the BOE engine on inputs from a JSON or YAML file and/or --set key=value pairs and prints the outputs, the test battery and the gate decision.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, err := inputsFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		svc := underwriting.New(nil, nil)
		ev, err := svc.Evaluate(cmd.Context(), raw)
		if err != nil {
			return eris.Wrap(err, "evaluate")
		}

		switch format {
		case "json":
			return writeJSONOut(cmd.OutOrStdout(), ev)
		case "table", "":
			formatEvaluation(cmd.OutOrStdout(), ev)
			return nil
		default:
			return eris.Errorf("unknown format %q (want table or json)", format)
		}
	},
}

func init() {
	addInputFlags(evaluateCmd)
	evaluateCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(evaluateCmd)
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "JSON or YAML file of BOE inputs")
	cmd.Flags().StringArray("set", nil, "input override as key=value (repeatable)")
}

// inputsFromFlags merges --file and --set into one raw input map. --set wins.
func inputsFromFlags(cmd *cobra.Command) (map[string]any, error) {
	path, _ := cmd.Flags().GetString("file")
	sets, _ := cmd.Flags().GetStringArray("set")

	raw := map[string]any{}
	if path != "" {
		fromFile, err := readInputFile(path)
		if err != nil {
			return nil, err
		}
		raw = fromFile
	}
	for _, kv := range sets {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, eris.Errorf("invalid --set %q (want key=value)", kv)
		}
		raw[key] = strings.TrimSpace(val)
	}
	if path == "" && len(sets) == 0 {
		return nil, eris.New("no inputs: pass --file or --set")
	}
	return raw, nil
}

// readInputFile reads a flat map of inputs. Files ending in .yaml or .yml are
// YAML; anything else is JSON. A top-level "inputs" key is unwrapped so
// parity fixtures can be fed in directly.
func readInputFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}

	if nested, ok := raw["inputs"].(map[string]any); ok {
		return nested, nil
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders whole dollars with thousands separators.
func formatMoney(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "N/A"
	}
	if *v < 0 {
		return moneyPrinter.Sprintf("-$%.0f", -*v)
	}
	return moneyPrinter.Sprintf("$%.0f", *v)
}

func moneyFromMap(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case *float64:
		return v
	default:
		return nil
	}
}

func formatEvaluation(out io.Writer, ev *underwriting.Evaluation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	binding, _ := ev.Outputs["binding_constraint"].(string)
	if binding == "" {
		binding = "N/A"
	}
	_, _ = fmt.Fprintf(w, "BOE max bid:\t%s\n", formatMoney(moneyFromMap(ev.Outputs, "boe_max_bid")))
	_, _ = fmt.Fprintf(w, "Binding constraint:\t%s\n", binding)
	_, _ = fmt.Fprintf(w, "Delta vs asking:\t%s\n", formatMoney(moneyFromMap(ev.Outputs, "delta_vs_asking")))
	_, _ = fmt.Fprintln(w)

	formatTests(w, ev.Tests)
	_, _ = fmt.Fprintln(w)

	d := ev.Decision
	_, _ = fmt.Fprintf(w, "Decision:\t%s (%d/%d pass, hard veto ok: %t)\n", d.Status, d.PassCount, d.TotalTests, d.HardVetoOK)
	_ = w.Flush()
}

// formatTests writes the test battery. w is flushed by the caller.
func formatTests(w io.Writer, tests []boe.TestOutcome) {
	_, _ = fmt.Fprintln(w, "TEST\tCLASS\tTHRESHOLD\tACTUAL\tRESULT")
	_, _ = fmt.Fprintln(w, "----\t-----\t---------\t------\t------")
	for _, t := range tests {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Class, t.ThresholdDisplay, t.ActualDisplay, t.Result)
	}
}

func writeJSONOut(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
