package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/underwriting-cli/internal/parity"
)

// errParityFailed makes the command exit non-zero without re-printing the
// failures it already wrote.
var errParityFailed = eris.New("parity check failed")

var parityCmd = &cobra.Command{
	Use:   "parity",
	Short: "Check the engine against golden fixtures and the reference workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir != "" {
			cfg.Parity.FixturesDir = dir
		}
		if err := cfg.Validate("parity"); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return parity.Watch(ctx, cfg.Parity.FixturesDir, func(r *parity.Report, err error) {
				if err != nil {
					zap.L().Error("parity run failed", zap.Error(err))
					return
				}
				formatParityReport(out, r)
			})
		}

		report, err := parity.RunDir(cmd.Context(), cfg.Parity.FixturesDir)
		if err != nil {
			return eris.Wrap(err, "parity")
		}
		formatParityReport(out, report)
		passed := report.Passed()

		workbook, _ := cmd.Flags().GetString("workbook")
		if workbook != "" {
			cfg.Parity.WorkbookPath = workbook
		}
		cellsPath, _ := cmd.Flags().GetString("cells")
		ok, err := checkWorkbook(out, cfg.Parity.WorkbookPath, cfg.Parity.Sheet, cellsPath)
		if err != nil {
			return err
		}

		if !passed || !ok {
			return errParityFailed
		}
		return nil
	},
}

func init() {
	parityCmd.Flags().String("dir", "", "fixtures directory (default from config)")
	parityCmd.Flags().String("workbook", "", "reference workbook path (default from config or BOE_WORKBOOK_PATH)")
	parityCmd.Flags().String("cells", "fixtures/boe/cells.yaml", "YAML cell map for the workbook check")
	parityCmd.Flags().Bool("watch", false, "re-run the fixtures whenever one changes")
	rootCmd.AddCommand(parityCmd)
}

// checkWorkbook compares the engine with the workbook's cached values. A
// missing workbook or cell map skips the check.
func checkWorkbook(out io.Writer, configured, sheet, cellsPath string) (bool, error) {
	path := parity.ResolveWorkbookPath(configured)
	if !parity.WorkbookAvailable(path) {
		_, _ = fmt.Fprintf(out, "workbook: skipped (%s not found)\n", path)
		return true, nil
	}

	cells, err := loadCellMap(cellsPath)
	if errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(out, "workbook: skipped (no cell map at %s)\n", cellsPath)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	snap, err := parity.ReadWorkbookSnapshot(path, sheet, cells)
	if err != nil {
		return false, eris.Wrap(err, "parity workbook")
	}
	failures := parity.CompareSnapshot("workbook", snap, parity.DefaultTolerance)
	for _, f := range failures {
		_, _ = fmt.Fprintf(out, "  FAIL %s\n", f)
	}
	_, _ = fmt.Fprintf(out, "workbook: %d outputs compared, %d failures\n", len(snap.Outputs), len(failures))
	return len(failures) == 0, nil
}

func loadCellMap(path string) (parity.CellMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parity.CellMap{}, eris.Wrapf(err, "read cell map %s", path)
	}
	var cells parity.CellMap
	if err := yaml.Unmarshal(data, &cells); err != nil {
		return parity.CellMap{}, eris.Wrapf(err, "parse cell map %s", path)
	}
	return cells, nil
}

func formatParityReport(out io.Writer, r *parity.Report) {
	for _, c := range r.Cases {
		switch {
		case c.Skipped:
			_, _ = fmt.Fprintf(out, "SKIP  %s (no expected block)\n", c.Name)
		case len(c.Failures) == 0:
			_, _ = fmt.Fprintf(out, "PASS  %s\n", c.Name)
		default:
			_, _ = fmt.Fprintf(out, "FAIL  %s\n", c.Name)
			for _, f := range c.Failures {
				_, _ = fmt.Fprintf(out, "  %s\n", f)
			}
		}
	}
	_, _ = fmt.Fprintf(out, "fixtures: %d cases, %d compared, %d failures\n", len(r.Cases), r.Compared(), len(r.Failures))
}
