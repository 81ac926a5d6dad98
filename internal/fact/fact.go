package fact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultField = "text"
	maxBodyBytes = 64 << 10
	userAgent    = "facts/1 (+https://github.com/scottzero/facts-that-arent-fun-at-all)"
)

// ErrNetwork wraps every failure of a single fetch attempt: transport,
// status, malformed body or a missing text field.
var ErrNetwork = errors.New("network error")

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher performs a single GET against a fact endpoint and pulls the
// fact text out of the JSON body.
type HTTPFetcher struct {
	client *http.Client
	field  string
}

// NewHTTPFetcher creates a fetcher that reads the given JSON field path
// (gjson syntax, e.g. "text" or "data.fact").
func NewHTTPFetcher(field string, timeout time.Duration) *HTTPFetcher {
	if field == "" {
		field = DefaultField
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		field:  field,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d: %s", ErrNetwork, resp.StatusCode, snippet(body))
	}

	return extract(body, f.field)
}

func extract(body []byte, field string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not valid JSON", ErrNetwork)
	}
	res := gjson.GetBytes(body, field)
	if !res.Exists() {
		return "", fmt.Errorf("%w: field %q missing", ErrNetwork, field)
	}
	if res.Type != gjson.String {
		return "", fmt.Errorf("%w: field %q is %s, not a string", ErrNetwork, field, res.Type)
	}
	text := strings.TrimSpace(res.Str)
	if text == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrNetwork, field)
	}
	return text, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Normalize trims and lowercases a fact for display and de-duplication.
func Normalize(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
