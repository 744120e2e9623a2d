package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ddtft/internal/domain"
	"ddtft/internal/export"
	"ddtft/internal/service"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var csvPath, xlsxPath string

	cmd := &cobra.Command{
		Use:   "batch FILE|DIR...",
		Short: "Extract many documents in parallel and optionally export them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			files, err := expandInputs(args)
			if err != nil {
				return err
			}

			// Unreadable files fail on their own; the rest still run.
			readErrs := make(map[int]error)
			inputs := make([]service.ExtractInput, 0, len(files))
			positions := make([]int, 0, len(files))
			for i, path := range files {
				in, err := readInput(ctx, a.source, path)
				if err != nil {
					readErrs[i] = err
					continue
				}
				inputs = append(inputs, in)
				positions = append(positions, i)
			}

			results := make([]service.BatchItemResult, len(files))
			for i, err := range readErrs {
				results[i] = service.BatchItemResult{Index: i, FileName: filepath.Base(files[i]), Err: err}
			}
			for _, r := range a.svc.ExtractBatch(ctx, inputs) {
				i := positions[r.Index]
				r.Index = i
				results[i] = r
			}

			failed := printSummary(cmd, results)

			recs := make([]domain.ExtractionRecord, 0, len(results))
			for _, r := range results {
				if r.Err == nil {
					recs = append(recs, *r.Result.Record)
				}
			}
			if err := writeExport(csvPath, domain.ExportFormatCSV, recs, a.cfg.Export.SheetName); err != nil {
				return err
			}
			if err := writeExport(xlsxPath, domain.ExportFormatXLSX, recs, a.cfg.Export.SheetName); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write a CSV export to this path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an XLSX export to this path")
	return cmd
}

func printSummary(cmd *cobra.Command, results []service.BatchItemResult) int {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	failed := 0
	_, _ = fmt.Fprintln(tw, "FILE\tTYPE\tNUMBER\tDATE\tVALIDATION\tDIAGNOSTICS")
	for _, r := range results {
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(tw, "%s\t-\t-\t-\terror\t%v\n", r.FileName, r.Err)
			continue
		}
		d := r.Result.Document
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.FileName, d.Type, d.Number, d.Date, r.Result.Report.Status, len(r.Result.Diagnostics))
	}
	return failed
}

func writeExport(path string, format domain.ExportFormat, recs []domain.ExtractionRecord, sheet string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, recs, sheet); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
