package salesaskctl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/salesask/salesask/internal/seed"
)

const maxReportedSkips = 10

func newSeedCommand(stdout io.Writer) *cobra.Command {
	var csvPath, dbPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a sales CSV into a sqlite store when its table is empty",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := parseCSV(csvPath)
			if err != nil {
				return err
			}
			result, err := seed.LoadSQLite(cmd.Context(), dbPath, report.Sales)
			if err != nil {
				return err
			}
			if result.Inserted == 0 && result.Existing > 0 {
				_, _ = fmt.Fprintf(stdout, "coffee_sales already holds %d rows; nothing inserted\n", result.Existing)
				return nil
			}
			_, _ = fmt.Fprintf(stdout, "inserted %d rows, skipped %d, total %d\n", result.Inserted, len(report.Skipped), result.Total)
			writeSkipped(stdout, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the sales CSV")
	cmd.Flags().StringVar(&dbPath, "db", "data/db.sqlite", "path to the sqlite store")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func parseCSV(path string) (seed.Report, error) {
	if strings.TrimSpace(path) == "" {
		return seed.Report{}, usageError{fmt.Errorf("--csv is required")}
	}
	file, err := os.Open(path)
	if err != nil {
		return seed.Report{}, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = file.Close() }()
	return seed.Parse(file)
}

func writeSkipped(w io.Writer, skipped []seed.RowError) {
	if len(skipped) == 0 {
		return
	}
	items := make([]pterm.BulletListItem, 0, maxReportedSkips+1)
	for i, rowErr := range skipped {
		if i == maxReportedSkips {
			items = append(items, pterm.BulletListItem{Level: 0, Text: fmt.Sprintf("... and %d more", len(skipped)-maxReportedSkips)})
			break
		}
		items = append(items, pterm.BulletListItem{Level: 0, Text: fmt.Sprintf("row %d: %s", rowErr.Row, rowErr.Reason)})
	}
	rendered, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return
	}
	_, _ = fmt.Fprint(w, rendered)
}
