package tui

import "github.com/scottzero/facts-that-arent-fun-at-all/internal/session"

type factDisplayedMsg struct {
	current string
	busy    bool
	info    *session.RateLimitInfo
}

type countdownMsg struct{}

type updateAvailableMsg struct {
	version string
}

type lookupErrMsg struct {
	err error
}
