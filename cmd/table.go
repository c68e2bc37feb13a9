package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// renderTable renders rows under headers. Rounded borders only when stdout
// is a terminal, so piped output stays plain ASCII. rightAlign lists
// zero-based column indexes holding numeric cells.
func renderTable(headers []string, rows [][]string, rightAlign ...int) string {
	tw := table.NewWriter()
	if isTerminal(os.Stdout) {
		tw.SetStyle(table.StyleRounded)
	}

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

	if len(rightAlign) > 0 {
		configs := make([]table.ColumnConfig, 0, len(rightAlign))
		for _, idx := range rightAlign {
			configs = append(configs, table.ColumnConfig{
				Number:      idx + 1,
				Align:       text.AlignRight,
				AlignHeader: text.AlignLeft,
			})
		}
		tw.SetColumnConfigs(configs)
	}

	return tw.Render()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// truncate shortens s to max runes for table cells.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
