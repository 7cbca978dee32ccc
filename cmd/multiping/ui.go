package main

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/digineo/go-multiping/monitor"
)

const logPaneHeight = 8

type userInterface struct {
	app   *tview.Application
	table *tview.Table
	logs  *tview.TextView
	li    *logInterceptor

	quit     chan struct{}
	quitOnce sync.Once
}

// buildTUI creates the table for the given targets. If li is not nil, a
// log pane shows its latest messages.
func buildTUI(targets []monitor.Target, li *logInterceptor) *userInterface {
	ui := &userInterface{
		app:   tview.NewApplication(),
		table: tview.NewTable().SetBorders(false).SetFixed(1, 0),
		li:    li,
		quit:  make(chan struct{}),
	}

	ui.table.SetBorder(true).SetTitle(" multiping (press [q] to exit) ")

	for c, name := range columns {
		cell := tview.NewTableCell(name).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false)
		ui.table.SetCell(0, c, align(cell, c))
	}

	for r, t := range targets {
		for c := range columns {
			var cell *tview.TableCell
			switch c {
			case 0:
				cell = tview.NewTableCell(t.String())
			case 1:
				cell = tview.NewTableCell(t.Addr.String())
			case len(columns) - 1:
				cell = tview.NewTableCell("")
			default:
				cell = tview.NewTableCell(noData)
			}
			ui.table.SetCell(r+1, c, align(cell, c))
		}
	}

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			ui.requestQuit()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				ui.requestQuit()
				return nil
			}
		}
		return event
	})

	var root tview.Primitive = ui.table
	if li != nil {
		ui.logs = tview.NewTextView().SetScrollable(false)
		ui.logs.SetBorder(true).SetTitle(" log ")
		root = tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(ui.table, 0, 1, true).
			AddItem(ui.logs, logPaneHeight, 0, false)
	}
	ui.app.SetRoot(root, true).SetFocus(ui.table)

	return ui
}

// align right-aligns the numeric columns.
func align(cell *tview.TableCell, col int) *tview.TableCell {
	switch col {
	case 0, 1, len(columns) - 2, len(columns) - 1:
		return cell.SetAlign(tview.AlignLeft)
	}
	return cell.SetAlign(tview.AlignRight).SetExpansion(0)
}

func (ui *userInterface) requestQuit() {
	ui.quitOnce.Do(func() { close(ui.quit) })
}

// Run blocks until Stop is called.
func (ui *userInterface) Run() error {
	return ui.app.Run()
}

func (ui *userInterface) Stop() {
	ui.app.Stop()
}

// Render implements monitor.Sink.
func (ui *userInterface) Render(snaps []monitor.Snapshot) {
	ui.app.QueueUpdateDraw(func() {
		ui.update(snaps)
	})
}

func (ui *userInterface) update(snaps []monitor.Snapshot) {
	for _, s := range snaps {
		r := s.Index + 1
		for c, text := range format(s).values() {
			ui.table.GetCell(r, c).SetText(text)
		}
		ui.table.GetCell(r, len(columns)-2).SetTextColor(statusColor(s.Status))
	}

	if ui.logs != nil {
		lines := ui.li.lines()
		if n := len(lines) - (logPaneHeight - 2); n > 0 {
			lines = lines[n:]
		}
		ui.logs.SetText(strings.Join(lines, "\n"))
	}
}

func statusColor(s monitor.Status) tcell.Color {
	switch s {
	case monitor.Up:
		return tcell.ColorGreen
	case monitor.Down:
		return tcell.ColorRed
	}
	return tcell.ColorYellow
}
