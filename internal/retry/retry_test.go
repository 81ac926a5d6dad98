package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
)

type stubFetcher struct {
	calls    atomic.Int32
	failures int32 // number of leading failures; -1 fails forever
	text     string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	n := s.calls.Add(1)
	if s.failures < 0 || n <= s.failures {
		return "", fmt.Errorf("%w: attempt %d", fact.ErrNetwork, n)
	}
	return s.text, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: time.Millisecond, MinDelay: time.Millisecond, Jitter: 0.25}
}

func TestFetchWithRetryExhausted(t *testing.T) {
	for _, retries := range []int{0, 1, 3} {
		f := &stubFetcher{failures: -1}
		cfg := fastConfig()
		cfg.MaxRetries = retries

		got, ok := New(f, cfg, quietLogger()).FetchWithRetry(context.Background(), "http://example")
		if ok || got != "" {
			t.Errorf("retries=%d: expected exhausted, got %q, %v", retries, got, ok)
		}
		if int(f.calls.Load()) != retries+1 {
			t.Errorf("retries=%d: expected %d attempts, got %d", retries, retries+1, f.calls.Load())
		}
	}
}

func TestFetchWithRetryRecovers(t *testing.T) {
	f := &stubFetcher{failures: 2, text: "Octopuses Have Three Hearts."}

	got, ok := New(f, fastConfig(), quietLogger()).FetchWithRetry(context.Background(), "http://example")
	if !ok {
		t.Fatal("expected success")
	}
	if got != "octopuses have three hearts." {
		t.Errorf("expected lowercased fact, got %q", got)
	}
	if f.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", f.calls.Load())
	}
}

func TestFetchWithRetryFirstTry(t *testing.T) {
	f := &stubFetcher{text: "fact"}

	if _, ok := New(f, fastConfig(), quietLogger()).FetchWithRetry(context.Background(), "http://example"); !ok {
		t.Fatal("expected success")
	}
	if f.calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", f.calls.Load())
	}
}

func TestFetchWithRetryCancelled(t *testing.T) {
	f := &stubFetcher{failures: -1}
	cfg := fastConfig()
	cfg.BaseDelay = time.Hour
	cfg.MinDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan bool)
	go func() {
		_, ok := New(f, cfg, quietLogger()).FetchWithRetry(ctx, "http://example")
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected exhausted after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop on cancel")
	}
}

func TestBackoffWithoutJitter(t *testing.T) {
	b := &Backoff{Base: 400 * time.Millisecond, Min: 100 * time.Millisecond}
	want := []time.Duration{400 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != 400*time.Millisecond {
		t.Errorf("after Reset got %v, want 400ms", got)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	const jitter = 0.25
	for _, r := range []float64{0, 0.1, 0.5, 0.9, 0.999} {
		b := &Backoff{Base: 400 * time.Millisecond, Min: 100 * time.Millisecond, Jitter: jitter, Rand: func() float64 { return r }}
		for n := range 4 {
			nominal := float64(400*time.Millisecond) * math.Pow(2, float64(n))
			got := float64(b.NextBackOff())
			if got < nominal*(1-jitter) || got > nominal*(1+jitter) {
				t.Errorf("r=%v n=%d: delay %v outside [%v, %v]", r, n,
					time.Duration(got), time.Duration(nominal*(1-jitter)), time.Duration(nominal*(1+jitter)))
			}
		}
	}
}

func TestBackoffJitterExtremes(t *testing.T) {
	low := &Backoff{Base: time.Second, Jitter: 0.25, Rand: func() float64 { return 0 }}
	if got := low.NextBackOff(); got != 750*time.Millisecond {
		t.Errorf("r=0: got %v, want 750ms", got)
	}
	mid := &Backoff{Base: time.Second, Jitter: 0.25, Rand: func() float64 { return 0.5 }}
	if got := mid.NextBackOff(); got != time.Second {
		t.Errorf("r=0.5: got %v, want 1s", got)
	}
}

func TestBackoffFloor(t *testing.T) {
	b := &Backoff{Base: 10 * time.Millisecond, Min: 100 * time.Millisecond, Jitter: 0.25, Rand: func() float64 { return 0 }}
	for i := range 3 {
		if got := b.NextBackOff(); got < 100*time.Millisecond {
			t.Errorf("delay %d = %v, below floor", i, got)
		}
	}
	if got := b.NextBackOff(); got != 100*time.Millisecond {
		t.Errorf("delay 3 = %v, want floor 100ms", got)
	}
	// 10ms*2^4 = 160ms less 25% = 120ms, above the floor.
	if got := b.NextBackOff(); got != 120*time.Millisecond {
		t.Errorf("delay 4 = %v, want 120ms", got)
	}
}

// delayRecorder keeps the delay attribute of every retry log line.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (d *delayRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (d *delayRecorder) Handle(_ context.Context, r slog.Record) error {
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "delay" {
			d.mu.Lock()
			d.delays = append(d.delays, a.Value.Duration())
			d.mu.Unlock()
		}
		return true
	})
	return nil
}

func (d *delayRecorder) WithAttrs([]slog.Attr) slog.Handler { return d }
func (d *delayRecorder) WithGroup(string) slog.Handler { return d }

func (d *delayRecorder) Delays() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.delays...)
}

func TestFetchWithRetryWaitsBackoffDelays(t *testing.T) {
	rec := &delayRecorder{}
	cfg := Config{MaxRetries: 3, BaseDelay: 2 * time.Millisecond, MinDelay: 2 * time.Millisecond, Jitter: 0.25}
	p := New(&stubFetcher{failures: -1}, cfg, slog.New(rec))
	p.rand = func() float64 { return 0 }

	if _, ok := p.FetchWithRetry(context.Background(), "http://example"); ok {
		t.Fatal("expected exhausted")
	}

	// 2ms*0.75 is floored to 2ms; later delays clear the floor.
	want := []time.Duration{2 * time.Millisecond, 3 * time.Millisecond, 6 * time.Millisecond}
	got := rec.Delays()
	if len(got) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFetchWithRetryDelaysWithinJitterBand(t *testing.T) {
	rec := &delayRecorder{}
	cfg := Config{MaxRetries: 4, BaseDelay: time.Millisecond, MinDelay: time.Millisecond, Jitter: 0.25}
	f := &stubFetcher{failures: -1}

	if _, ok := New(f, cfg, slog.New(rec)).FetchWithRetry(context.Background(), "http://example"); ok {
		t.Fatal("expected exhausted")
	}

	got := rec.Delays()
	if len(got) != cfg.MaxRetries {
		t.Fatalf("expected %d waits for %d attempts, got %v", cfg.MaxRetries, f.calls.Load(), got)
	}
	for n, d := range got {
		nominal := float64(cfg.BaseDelay) * math.Pow(2, float64(n))
		lo := max(time.Duration(nominal*(1-cfg.Jitter)), cfg.MinDelay)
		hi := max(time.Duration(nominal*(1+cfg.Jitter)), cfg.MinDelay)
		if d < lo || d > hi {
			t.Errorf("wait %d = %v outside [%v, %v]", n, d, lo, hi)
		}
	}
}
