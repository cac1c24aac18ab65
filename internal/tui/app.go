// Package tui is the interactive hotspot browser. It is a thin layer over
// api.HotspotAPI: a search bar, a results table, a ring detail pane and a
// status line fed by the background watcher.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"prospector/internal/api"
	"prospector/internal/database"
	"prospector/internal/ingest"
	"prospector/internal/normalize"
)

// App is the tview application and its components.
type App struct {
	app *tview.Application

	hotspots api.HotspotAPI

	pages   *tview.Pages
	search  *tview.InputField
	results *tview.Table
	detail  *tview.TextView
	status  *tview.TextView

	// rows mirrors the table so key handlers can resolve the selection.
	rows []database.HotspotRecord

	// origin is the route origin, normally the player's current system.
	// Guarded by originMu; the watcher goroutine updates it.
	originMu sync.Mutex
	origin   string
}

// NewApp builds the application around the given API.
func NewApp(hotspots api.HotspotAPI) *App {
	a := &App{
		app:      tview.NewApplication(),
		hotspots: hotspots,
	}

	a.search = tview.NewInputField().
		SetLabel(" Search ").
		SetFieldWidth(40).
		SetPlaceholder("material or system:name")
	a.search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.runSearch(a.search.GetText())
			a.app.SetFocus(a.results)
		}
	})

	a.results = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.results.SetBorder(true).SetTitle(" Hotspots ")
	a.results.SetSelectionChangedFunc(func(row, _ int) {
		a.showDetail(row - 1)
	})

	a.detail = tview.NewTextView().SetDynamicColors(true)
	a.detail.SetBorder(true).SetTitle(" Ring ")

	a.status = tview.NewTextView().SetDynamicColors(true)
	a.status.SetText(" [::d]/ search  b bookmark  m bookmarks  c conflicts  q quit[-:-:-]")

	grid := tview.NewGrid().
		SetRows(1, 0, 1).
		SetColumns(0, 44).
		AddItem(a.search, 0, 0, 1, 2, 0, 0, true).
		AddItem(a.results, 1, 0, 1, 1, 0, 0, false).
		AddItem(a.detail, 1, 1, 1, 1, 0, 0, false).
		AddItem(a.status, 2, 0, 1, 2, 0, 0, false)

	a.pages = tview.NewPages().AddPage("main", grid, true, true)

	a.app.SetInputCapture(a.handleKey)
	a.app.SetRoot(a.pages, true).SetFocus(a.search)
	return a
}

// Run blocks until the user quits.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop shuts the application down from another goroutine.
func (a *App) Stop() {
	a.app.Stop()
}

// ReportStats is safe to call from the watcher goroutine.
func (a *App) ReportStats(stats *ingest.RunStats) {
	if stats.EventsIngested == 0 && stats.LinesSkipped == 0 {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.status.SetText(fmt.Sprintf(" [green]live:[-] %d events ingested, %d skipped  [::d]/ search  b bookmark  q quit[-:-:-]",
			stats.EventsIngested, stats.LinesSkipped))
	})
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.app.GetFocus() == a.search {
		if event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.results)
			return nil
		}
		return event
	}
	if name, _ := a.pages.GetFrontPage(); name != "main" {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			a.pages.RemovePage(name)
			a.app.SetFocus(a.results)
			return nil
		}
		return event
	}

	switch event.Rune() {
	case '/':
		a.app.SetFocus(a.search)
		return nil
	case 'q':
		a.app.Stop()
		return nil
	case 'b':
		a.toggleBookmark()
		return nil
	case 'm':
		a.showBookmarks()
		return nil
	case 'c':
		a.showConflicts()
		return nil
	}
	return event
}

// runSearch parses the query and repopulates the table. A "system:" prefix
// searches by system name, anything else by material.
func (a *App) runSearch(query string) {
	filter := database.SearchFilter{Limit: 200}
	query = strings.TrimSpace(query)
	if rest, ok := strings.CutPrefix(query, "system:"); ok {
		filter.System = normalize.System(rest)
	} else if query != "" {
		filter.Material = normalize.Material(query)
	}

	records, err := a.hotspots.Search(filter)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]search failed: %v", err))
		return
	}
	a.rows = records
	a.renderResults()
	a.setStatus(fmt.Sprintf("%d hotspots", len(records)))
	if len(records) > 0 {
		a.results.Select(1, 0)
		a.showDetail(0)
	}
}

func (a *App) renderResults() {
	a.results.Clear()
	for col, h := range []string{"System", "Ring", "Material", "Count", "Class", "Dist (ls)", "Density", "Source"} {
		a.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
	for i, r := range a.rows {
		name := r.System
		if marked, _ := a.hotspots.IsBookmarked(r.System, r.Ring, r.Material); marked {
			name = "* " + name
		}
		a.results.SetCell(i+1, 0, tview.NewTableCell(name))
		a.results.SetCell(i+1, 1, tview.NewTableCell(r.Ring))
		a.results.SetCell(i+1, 2, tview.NewTableCell(r.Material))
		a.results.SetCell(i+1, 3, tview.NewTableCell(fmt.Sprintf("%d", r.Count)).SetAlign(tview.AlignRight))
		a.results.SetCell(i+1, 4, tview.NewTableCell(r.Metadata.Class.String()))
		a.results.SetCell(i+1, 5, tview.NewTableCell(cellFloat(r.Metadata.DistanceLS, "%.0f")).SetAlign(tview.AlignRight))
		a.results.SetCell(i+1, 6, tview.NewTableCell(cellFloat(r.Metadata.Density, "%.3g")).SetAlign(tview.AlignRight))
		a.results.SetCell(i+1, 7, tview.NewTableCell(r.Source.String()))
	}
}

// cellFloat renders an optional metadata value for the table.
func cellFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func (a *App) selected() *database.HotspotRecord {
	row, _ := a.results.GetSelection()
	i := row - 1
	if i < 0 || i >= len(a.rows) {
		return nil
	}
	return &a.rows[i]
}

func (a *App) toggleBookmark() {
	r := a.selected()
	if r == nil {
		return
	}
	marked, err := a.hotspots.ToggleBookmark(r.System, r.Ring, r.Material)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]bookmark failed: %v", err))
		return
	}
	if marked {
		a.setStatus(fmt.Sprintf("bookmarked %s / %s / %s", r.System, r.Ring, r.Material))
	} else {
		a.setStatus(fmt.Sprintf("removed bookmark %s / %s / %s", r.System, r.Ring, r.Material))
	}
	a.renderResults()
}

func (a *App) setStatus(msg string) {
	a.status.SetText(" " + msg)
}
