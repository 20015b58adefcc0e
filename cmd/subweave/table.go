package main

import (
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"subweave/internal/align"
)

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderMergeSummary builds the end-of-run table. The extended row only
// appears in cuts mode, where extended-cut entries exist.
func renderMergeSummary(result align.Result, mode align.Mode, outputPath string) string {
	rows := [][]string{
		{"Aligned pairs", strconv.Itoa(result.Aligned)},
		{"Primary only", strconv.Itoa(result.PrimaryOnly)},
		{"Secondary only", strconv.Itoa(result.SecondaryOnly)},
	}
	if mode == align.ModeCuts {
		rows = append(rows, []string{"Extended cut", strconv.Itoa(result.Extended)})
	}
	rows = append(rows,
		[]string{"Total fields", strconv.Itoa(len(result.Fields))},
		[]string{"Output", outputPath},
	)
	return renderKVTable([]string{"Result", "Value"}, rows)
}

// renderKVTable renders a two-column table with the value column
// right-aligned, matching the summary layout throughout the CLI.
func renderKVTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
