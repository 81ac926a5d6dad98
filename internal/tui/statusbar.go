package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// quota is the remaining tap allowance; limit 0 means taps are not throttled.
type quota struct {
	remaining int
	limit     int
}

func renderStatusBar(queued, seen int, q quota, width int, busy bool) string {
	left := fmt.Sprintf(" %d queued · %d seen", queued, seen)
	if q.limit > 0 {
		label := fmt.Sprintf("%d/%d taps left", q.remaining, q.limit)
		if q.remaining == 0 {
			label = noticeStyle.Render(label)
		}
		left += " · " + label
	}
	if busy {
		left += " (fetching...)"
	}

	right := " space next  s look up  ? help  q quit "

	// Width includes the style's horizontal padding.
	avail := max(width-statusBarStyle.GetHorizontalPadding(), 0)
	if lipgloss.Width(left)+lipgloss.Width(right) > avail {
		right = ""
		left = ansi.Truncate(left, avail, "…")
	}

	gap := avail - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
