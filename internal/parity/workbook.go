package parity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/underwriting-cli/internal/boe"
)

// WorkbookEnv overrides the configured workbook path.
const WorkbookEnv = "BOE_WORKBOOK_PATH"

// CellMap maps engine field names to A1 cell references in the workbook.
type CellMap struct {
	Inputs  map[string]string `json:"inputs" yaml:"inputs"`
	Outputs map[string]string `json:"outputs" yaml:"outputs"`
}

// Snapshot holds the cached values read from a workbook.
type Snapshot struct {
	Inputs  map[string]any `json:"inputs"`
	Outputs map[string]any `json:"outputs"`
}

// ResolveWorkbookPath returns the workbook location: the BOE_WORKBOOK_PATH
// environment variable when set, otherwise configured. Home-relative and
// relative paths are made absolute.
func ResolveWorkbookPath(configured string) string {
	path := configured
	if env := strings.TrimSpace(os.Getenv(WorkbookEnv)); env != "" {
		path = env
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// WorkbookAvailable reports whether a workbook file exists at path.
func WorkbookAvailable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadWorkbookSnapshot reads the mapped input and output cells from the
// workbook's cached values. Formulas are not recalculated. An empty sheet
// name selects the first sheet.
func ReadWorkbookSnapshot(path, sheet string, cells CellMap) (Snapshot, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Snapshot{}, eris.Wrap(err, "parity: open workbook")
	}

	sh, err := pickSheet(f, sheet)
	if err != nil {
		return Snapshot{}, err
	}

	inputs, err := readCells(sh, cells.Inputs)
	if err != nil {
		return Snapshot{}, err
	}
	outputs, err := readCells(sh, cells.Outputs)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Inputs: inputs, Outputs: outputs}, nil
}

// CompareSnapshot evaluates the engine on the workbook's inputs and compares
// every mapped output with the workbook's cached result.
func CompareSnapshot(name string, snap Snapshot, tol Tolerance) []string {
	out, _, _ := boe.Evaluate(boe.ParseInput(snap.Inputs))

	var errs []string
	for _, key := range sortedKeys(snap.Outputs) {
		got, ok := out.Lookup(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s output %s: unknown output key", name, key))
			continue
		}
		if msg, ok := compareValue(key, snap.Outputs[key], got, tol); !ok {
			errs = append(errs, fmt.Sprintf("%s output %s: %s", name, key, msg))
		}
	}
	return errs
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sh, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("parity: sheet %q not found", name)
		}
		return sh, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("parity: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func readCells(sh *xlsx.Sheet, refs map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(refs))
	for key, ref := range refs {
		col, row, err := xlsx.GetCoordsFromCellIDString(ref)
		if err != nil {
			return nil, eris.Wrapf(err, "parity: bad cell reference %q for %s", ref, key)
		}
		values[key] = cellValue(sh.Cell(row, col))
	}
	return values, nil
}

// cellValue returns a float64 for numeric cells, nil for blank cells and the
// trimmed text otherwise.
func cellValue(c *xlsx.Cell) any {
	if c == nil {
		return nil
	}
	if f, err := c.Float(); err == nil {
		return f
	}
	s := strings.TrimSpace(c.String())
	if s == "" {
		return nil
	}
	return s
}
