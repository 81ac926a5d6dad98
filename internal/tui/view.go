package tui

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

const maxCardWidth = 64

func cardWidth(termWidth int) int {
	w := termWidth - 4
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// renderFact draws the fact card. An empty fact renders the loading line.
func renderFact(text string, busy bool, spin string, width int) string {
	inner := width - factCardStyle.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	body := wrapText(text, inner)
	if text == "" {
		body = spin + " fetching a fact..."
	}

	style := factCardStyle
	if busy {
		style = factCardBusyStyle
	}
	return style.Width(width - 2).Render(body)
}

func renderButton(enabled bool) string {
	if enabled {
		return buttonStyle.Render("next fact")
	}
	return buttonDisabledStyle.Render("next fact")
}

func rateNotice(secs int) string {
	if secs <= 0 {
		return noticeStyle.Render("slow down! almost ready...")
	}
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return noticeStyle.Render(fmt.Sprintf("slow down! next fact in %d %s", secs, unit))
}

// secondsUntil rounds up so the countdown never shows 0 while still blocked.
func secondsUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func centerBlock(block string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}
