package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Width caps the cell width; zero leaves
// the column unbounded.
type column struct {
	Title string
	Right bool
	Width int
}

func leftCol(title string) column  { return column{Title: title} }
func rightCol(title string) column { return column{Title: title, Right: true} }

func (c column) capped(width int) column {
	c.Width = width
	return c
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.Title
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.Right {
			cfg.Align = text.AlignRight
		}
		if c.Width > 0 {
			cfg.WidthMax = c.Width
			cfg.WidthMaxEnforcer = text.Trim
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
