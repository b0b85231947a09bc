package main

import (
	"fmt"

	"github.com/couchcryptid/storm-grid-etl/internal/adapter/gdal"
	"github.com/couchcryptid/storm-grid-etl/internal/deps"
	"github.com/spf13/cobra"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the converter binary and GDAL are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg.WgribPath))
			statuses = append(statuses, deps.CheckLibrary("gdal", "GeoTIFF driver for raster stages", gdal.Available))

			fmt.Fprintln(cmd.OutOrStdout(), dependencyTable(statuses))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies unavailable", len(missing))
			}
			return nil
		},
	}
}

func dependencyTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		if !s.Available {
			state = "missing"
		}
		rows = append(rows, []string{s.Name, state, s.Command, s.Detail})
	}
	return renderTable([]string{"Dependency", "Status", "Command", "Detail"}, rows)
}
