package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/digineo/go-multiping/monitor"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// printReport writes the final statistics of all targets to w.
func printReport(w io.Writer, snaps []monitor.Snapshot) {
	if len(snaps) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < 2 || col >= len(columns)-2:
				return cellStyle
			}
			return numberStyle
		})

	for _, s := range snaps {
		t.Row(format(s).values()...)
	}

	fmt.Fprintln(w, t.Render())
}
