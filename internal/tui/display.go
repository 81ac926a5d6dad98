package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/session"
)

// Display forwards session updates into the bubbletea loop.
type Display struct {
	ch        chan factDisplayedMsg
	done      chan struct{}
	closeOnce sync.Once
}

var _ session.Display = (*Display)(nil)

func NewDisplay() *Display {
	return &Display{
		ch:   make(chan factDisplayedMsg, 16),
		done: make(chan struct{}),
	}
}

func (d *Display) Display(current string, busy bool, info *session.RateLimitInfo) {
	select {
	case d.ch <- factDisplayedMsg{current: current, busy: busy, info: info}:
	case <-d.done:
	}
}

// Close releases any sender blocked after the program has exited.
func (d *Display) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Display) listen() tea.Cmd {
	ch, done := d.ch, d.done
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-done:
			return nil
		}
	}
}
