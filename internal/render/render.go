// Package render formats tasks and history for terminal output.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"daylist/internal/history"
	"daylist/store"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("240"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	highStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mediumStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	lowStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	dateStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	checkedGlyph   = "[x]"
	uncheckedGlyph = "[ ]"
)

// terminalWidth returns the current terminal width, or a conservative
// default when stdout is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// priorityBadge renders a colored priority marker.
func priorityBadge(p store.Priority) string {
	switch p {
	case store.PriorityHigh:
		return highStyle.Render("high")
	case store.PriorityLow:
		return lowStyle.Render("low")
	default:
		return mediumStyle.Render("med")
	}
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// Tasks writes the "to do" and "done today" sections. doneToday holds
// the tasks completed since local midnight; when all is true, completed
// tasks outside today are shown too (they only exist between completion
// and the next maintenance run).
func Tasks(w io.Writer, todo, doneToday []store.Task, all []store.Task, showAll bool) {
	width := terminalWidth()

	if len(todo) == 0 && len(doneToday) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Nothing here. Add a task with 'daylist add <title>'."))
		return
	}

	if len(todo) > 0 {
		fmt.Fprintln(w, headerStyle.Render("To do"))
		for _, t := range todo {
			renderTask(w, t, width, false)
		}
	}
	if len(doneToday) > 0 {
		if len(todo) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headerStyle.Render("Done today"))
		for _, t := range doneToday {
			renderTask(w, t, width, true)
		}
	}
	if showAll {
		var stale []store.Task
		today := map[string]bool{}
		for _, t := range doneToday {
			today[t.ID] = true
		}
		for _, t := range all {
			if t.Completed && !today[t.ID] {
				stale = append(stale, t)
			}
		}
		if len(stale) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, headerStyle.Render("Done earlier (awaiting archive)"))
			for _, t := range stale {
				renderTask(w, t, width, true)
			}
		}
	}
}

// renderTask writes one task line plus its checklist.
func renderTask(w io.Writer, t store.Task, width int, done bool) {
	glyph := uncheckedGlyph
	if t.Completed {
		glyph = checkedGlyph
	}

	title := truncate(t.Title, width-20)
	if done {
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("  %s %s  %s", glyph, title, priorityBadge(t.Priority))
	if n := len(t.SubTasks); n > 0 {
		completed := 0
		for _, st := range t.SubTasks {
			if st.Completed {
				completed++
			}
		}
		line += dimStyle.Render(fmt.Sprintf("  (%d/%d)", completed, n))
	}
	fmt.Fprintln(w, line)

	if t.Description != "" {
		fmt.Fprintln(w, dimStyle.Render("      "+truncate(t.Description, width-10)))
	}
	for _, st := range t.SubTasks {
		sg := uncheckedGlyph
		text := truncate(st.Text, width-12)
		if st.Completed {
			sg = checkedGlyph
			text = doneStyle.Render(text)
		}
		fmt.Fprintf(w, "      %s %s\n", sg, text)
	}
}

// History writes archive entries, most recent day first, with aggregate
// counts.
func History(w io.Writer, entries []store.HistoryEntry, stats history.Stats) {
	width := terminalWidth()

	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("History is empty."))
		return
	}

	for i, entry := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n",
			dateStyle.Render(history.Label(entry.Date)),
			dimStyle.Render(fmt.Sprintf("(%d)", len(entry.Tasks))))
		for _, t := range entry.Tasks {
			line := "  " + checkedGlyph + " " + doneStyle.Render(truncate(t.Title, width-10))
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d task(s) across %d day(s)", stats.Tasks, stats.Days)))
}

// Trash writes the pending deletions still inside their grace window.
func Trash(w io.Writer, items []store.TrashItem) {
	if len(items) == 0 {
		return
	}
	var titles []string
	for _, item := range items {
		titles = append(titles, item.Snapshot.Title)
	}
	fmt.Fprintln(w, dimStyle.Render("Pending deletion (undo with 'daylist undo'): "+strings.Join(titles, ", ")))
}
