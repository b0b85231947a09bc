package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// field is one labelled line of a report table.
type field struct {
	label string
	value string
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderReport draws labelled values under a two-cell title, values
// right-aligned.
func renderReport(title, subtitle string, fields []field) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{title, subtitle})
	for _, f := range fields {
		tw.AppendRow(table.Row{f.label, f.value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderTable draws a left-aligned table; go-pretty pads short rows.
func renderTable(headers []string, rows [][]string) string {
	tw := newTableWriter()
	tw.AppendHeader(cells(headers))
	for _, row := range rows {
		tw.AppendRow(cells(row))
	}
	return tw.Render()
}

func cells(values []string) table.Row {
	r := make(table.Row, len(values))
	for i, v := range values {
		r[i] = v
	}
	return r
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
