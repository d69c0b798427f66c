package salesaskctl

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/salesask/salesask/internal/seed"
)

func newPublishCommand(defaults Options, stdout io.Writer) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a sales CSV as a new parquet snapshot in the object store",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if defaults.ObjectStore == nil {
				return errors.New("object store is not configured")
			}
			report, err := parseCSV(csvPath)
			if err != nil {
				return err
			}
			objects, err := defaults.ObjectStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}
			info, err := seed.Publish(cmd.Context(), objects, report.Sales, defaults.Clock().UTC())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "published %d rows to %s (%d bytes), skipped %d\n", len(report.Sales), info.Key, info.Size, len(report.Skipped))
			writeSkipped(stdout, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the sales CSV")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
