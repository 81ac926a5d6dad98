package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// start is swapped out in tests.
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open launches the system browser for an http(s) URL.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	name, args := command(runtime.GOOS, rawURL)
	return start(name, args...)
}

func command(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		// rundll32 avoids cmd /c start shell interpretation
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}
