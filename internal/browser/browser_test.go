package browser

import (
	"strings"
	"testing"
)

func stubStart(t *testing.T) *[]string {
	t.Helper()
	var got []string
	orig := start
	start = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	t.Cleanup(func() { start = orig })
	return &got
}

func TestOpenRejectsNonHTTP(t *testing.T) {
	launched := stubStart(t)

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://duckduckgo.com/?q=honey", false},
		{"http://example.com", false},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com", true},
		{"", true},
	}

	for _, tt := range tests {
		*launched = nil
		err := Open(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Open(%q): expected error, got nil", tt.url)
			}
			if len(*launched) != 0 {
				t.Errorf("Open(%q): rejected URL must not launch anything", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("Open(%q): unexpected error: %v", tt.url, err)
		}
		if len(*launched) == 0 || (*launched)[len(*launched)-1] != tt.url {
			t.Errorf("Open(%q): launched %v", tt.url, *launched)
		}
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open https://x.test"},
		{"linux", "xdg-open https://x.test"},
		{"freebsd", "xdg-open https://x.test"},
		{"windows", "rundll32 url.dll,FileProtocolHandler https://x.test"},
	}
	for _, tt := range tests {
		name, args := command(tt.goos, "https://x.test")
		got := strings.Join(append([]string{name}, args...), " ")
		if got != tt.want {
			t.Errorf("command(%s) = %q, want %q", tt.goos, got, tt.want)
		}
	}
}
