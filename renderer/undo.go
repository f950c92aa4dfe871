package renderer

import (
	"time"

	"github.com/etnz/profit"
)

// UndoRow is a pending undo entry with its remaining time.
type UndoRow struct {
	profit.UndoEntry
	Left time.Duration
}

// RenderUndo renders the mutations that can still be undone at now.
func RenderUndo(entries []profit.UndoEntry, now time.Time) string {
	var rows []UndoRow
	for _, e := range entries {
		if left := e.Expires.Sub(now); left > 0 {
			rows = append(rows, UndoRow{UndoEntry: e, Left: left.Round(time.Second)})
		}
	}
	return renderTemplate("undo", "undo.md", nil, rows)
}
