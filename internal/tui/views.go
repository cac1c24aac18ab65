package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"prospector/internal/route"
)

// showDetail renders the ring pane for the result at index i.
func (a *App) showDetail(i int) {
	if i < 0 || i >= len(a.rows) {
		a.detail.SetText("")
		return
	}
	r := a.rows[i]

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-]\n%s\n\n", r.System, r.Ring)

	meta, err := a.hotspots.RingMetadata(r.System, r.Ring)
	if err == nil {
		fmt.Fprintf(&b, "Class     %s\n", meta.Class)
		writeFloat(&b, "Arrival", meta.DistanceLS, "ls")
		writeFloat(&b, "Inner", meta.InnerRad, "m")
		writeFloat(&b, "Outer", meta.OuterRad, "m")
		writeFloat(&b, "Mass", meta.MassMT, "Mt")
		writeFloat(&b, "Density", meta.Density, "")
	}

	siblings, err := a.hotspots.RingMaterials(r.System, r.Ring)
	if err == nil && len(siblings) > 0 {
		b.WriteString("\n[yellow]Hotspots[-]\n")
		for _, s := range siblings {
			fmt.Fprintf(&b, "%-22s %d\n", s.Material, s.Count)
		}
	}

	if visit, err := a.hotspots.VisitedSystem(r.System); err == nil && visit != nil {
		fmt.Fprintf(&b, "\nVisited %d time(s)\nLast %s\n",
			visit.VisitCount, visit.LastVisit.Format("2006-01-02 15:04"))
		a.writeRoute(&b, visit.System)
	} else {
		b.WriteString("\nNever visited\n")
	}

	a.detail.SetText(b.String())
}

// writeRoute appends a route from the most recently visited system, when one
// exists within jump range.
func (a *App) writeRoute(b *strings.Builder, target string) {
	current := a.currentSystem()
	if current == "" || current == target {
		return
	}
	hops, err := a.hotspots.PlanRoute(current, target)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\n[yellow]Route from %s[-] (%.1f ly, %d jumps)\n",
		current, route.TotalDistance(hops), len(hops)-1)
	for _, h := range hops[1:] {
		fmt.Fprintf(b, "  %-20s %6.1f ly\n", h.System, h.DistanceLY)
	}
}

// currentSystem is the route origin, set by main from the latest arrival.
func (a *App) currentSystem() string {
	a.originMu.Lock()
	defer a.originMu.Unlock()
	return a.origin
}

// SetOrigin sets the route origin shown in the detail pane.
func (a *App) SetOrigin(system string) {
	a.originMu.Lock()
	defer a.originMu.Unlock()
	if system != "" {
		a.origin = system
	}
}

func writeFloat(b *strings.Builder, label string, v *float64, unit string) {
	if v == nil {
		fmt.Fprintf(b, "%-9s [::d]unknown[-:-:-]\n", label)
		return
	}
	if unit != "" {
		unit = " " + unit
	}
	fmt.Fprintf(b, "%-9s %.6g%s\n", label, *v, unit)
}

// showBookmarks opens a modal list of bookmarked hotspots.
func (a *App) showBookmarks() {
	bookmarks, err := a.hotspots.Bookmarks()
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]bookmarks failed: %v", err))
		return
	}

	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(" Bookmarks (esc to close) ")
	for _, bm := range bookmarks {
		list.AddItem(fmt.Sprintf("%s / %s / %s", bm.System, bm.Ring, bm.Material), "", 0, nil)
	}
	if len(bookmarks) == 0 {
		list.AddItem("no bookmarks", "", 0, nil)
	}
	a.showModal("bookmarks", list, 70, len(bookmarks)+4)
}

// showConflicts opens a modal list of recorded reconciliation conflicts.
func (a *App) showConflicts() {
	conflicts, err := a.hotspots.Conflicts(50)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]conflicts failed: %v", err))
		return
	}

	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true).SetTitle(" Conflicts (esc to close) ")
	for _, c := range conflicts {
		list.AddItem(
			fmt.Sprintf("%s / %s / %s", c.System, c.Ring, c.Material),
			fmt.Sprintf("%s: stored %s, observed %s (%s)", c.Field, c.Stored, c.Observed, c.Source),
			0, nil)
	}
	if len(conflicts) == 0 {
		list.AddItem("no conflicts recorded", "", 0, nil)
	}
	a.showModal("conflicts", list, 80, 2*len(conflicts)+4)
}

// showModal centers a primitive over the main page.
func (a *App) showModal(name string, p tview.Primitive, width, height int) {
	if height > 30 {
		height = 30
	}
	centered := tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(p, 1, 1, 1, 1, 0, 0, true)
	a.pages.AddPage(name, centered, true, true)
	a.app.SetFocus(p)
}
