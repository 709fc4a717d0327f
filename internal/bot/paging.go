package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcus/taskbot/internal/chat"
)

// Telegram rejects messages over 4096 UTF-16 units and keyboards over 100
// buttons. Byte length never undercounts UTF-16 units.
const (
	maxPageBytes   = 3500
	maxPageButtons = 50
	maxListText    = 200
)

// listEntry is one item of a list reply with its optional button
type listEntry struct {
	text   string
	button *chat.Button
}

// paginate groups entries so that every group fits in one message
func paginate(entries []listEntry) [][]listEntry {
	var pages [][]listEntry
	var cur []listEntry
	size, buttons := 0, 0
	for _, e := range entries {
		full := size+len(e.text) > maxPageBytes || (e.button != nil && buttons == maxPageButtons)
		if len(cur) > 0 && full {
			pages = append(pages, cur)
			cur, size, buttons = nil, 0, 0
		}
		cur = append(cur, e)
		size += len(e.text)
		if e.button != nil {
			buttons++
		}
	}
	if len(cur) > 0 {
		pages = append(pages, cur)
	}
	return pages
}

// sendList sends entries under title, split over as many messages as needed
func (h *Handler) sendList(ctx context.Context, chatID int64, title string, entries []listEntry) {
	pages := paginate(entries)
	for i, page := range pages {
		var b strings.Builder
		if len(pages) == 1 {
			fmt.Fprintf(&b, "%s:\n", title)
		} else {
			fmt.Fprintf(&b, "%s (%d/%d):\n", title, i+1, len(pages))
		}
		var buttons []chat.Button
		for _, e := range page {
			b.WriteString(e.text)
			if e.button != nil {
				buttons = append(buttons, *e.button)
			}
		}
		h.send(ctx, chat.Message{ChatID: chatID, Text: b.String(), Buttons: buttons})
	}
}

// clip shortens s to at most n runes
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
