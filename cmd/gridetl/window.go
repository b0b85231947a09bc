package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/couchcryptid/storm-grid-etl/internal/geometry"
	"github.com/spf13/cobra"
)

func newWindowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "window",
		Short: "Show where extract_data falls on the anal_data grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, win := cfg.AnalData, cfg.ExtractData
			if win.Cols <= 0 || win.Rows <= 0 || win.DX <= 0 || win.DY <= 0 {
				return errors.New("extract_data is not configured")
			}

			idx, boundsErr := geometry.Locate(src.Origin(), src.Cols, src.Rows, win.Window())
			state := "in bounds"
			if boundsErr != nil {
				state = "out of bounds"
			}

			report := renderReport("Window", idx.String(), []field{
				{"Source grid", fmt.Sprintf("%d x %d", src.Cols, src.Rows)},
				{"Row start", strconv.Itoa(idx.RowStart)},
				{"Row end", strconv.Itoa(idx.RowEnd)},
				{"Col start", strconv.Itoa(idx.ColStart)},
				{"Col end", strconv.Itoa(idx.ColEnd)},
				{"Window top Y", strconv.FormatFloat(win.Window().TopY(), 'f', -1, 64)},
				{"Bounds", state},
			})
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return boundsErr
		},
	}
}
