package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/trackui/internal/formatter"
	"github.com/desertthunder/trackui/internal/tasks"
)

// jobItem is one visible row of the downloads modal.
type jobItem struct {
	row      tasks.Row
	selected bool
	cursor   bool
}

func (i jobItem) Title() string { return i.row.ID }
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s • %d%% • %s files", i.row.Status, i.row.Percent, i.row.FilesText)
	if i.row.CurrentFile != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.row.CurrentFile)
	}
	if !i.row.StartTime.IsZero() {
		desc = fmt.Sprintf("%s • started %s", desc, i.row.StartTime.Local().Format(formatter.TimeLayout))
	}
	return desc
}

func (i jobItem) render() string {
	var b strings.Builder
	switch {
	case i.cursor:
		b.WriteString("> ")
	default:
		b.WriteString("  ")
	}
	if i.selected {
		b.WriteString("[x] ")
	} else {
		b.WriteString("[ ] ")
	}

	title := i.Title()
	if i.cursor {
		title = styles.selected.Render(title)
	}
	b.WriteString(title)
	b.WriteString("\n      ")
	b.WriteString(styles.muted.Render(i.Description()))
	return b.String()
}

// visibleItems orders rows by the filter ranking and marks the cursor and selection.
func visibleItems(rows []tasks.Row, order []string, cursor int, selected func(string) bool) []jobItem {
	byID := make(map[string]tasks.Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	items := make([]jobItem, 0, len(order))
	for _, id := range order {
		row, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, jobItem{row: row, selected: selected(id), cursor: len(items) == cursor})
	}
	return items
}
