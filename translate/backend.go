package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-cleanhttp"
)

// Backend translates a single string. Implementations must be safe for
// concurrent use.
type Backend interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ---------------------------------------------------------------------------
// HTTP backend configuration
// ---------------------------------------------------------------------------

// DefaultURL is the default LibreTranslate-compatible endpoint.
const DefaultURL = "http://localhost:5000/translate"

// DefaultTimeout bounds a single backend call so a stuck request cannot
// hold a permit forever.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// BackendConfig holds the configuration for an HTTP translation backend.
type BackendConfig struct {
	// URL is the translate endpoint receiving POST requests.
	URL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// Proxy is an optional HTTP/HTTPS proxy URL. When empty the
	// HTTP_PROXY/HTTPS_PROXY environment is used.
	Proxy string
	// Timeout is the per-call timeout (default DefaultTimeout).
	Timeout time.Duration
	// MaxRetries is the number of retries on transport errors, 5xx and
	// 429 responses. Zero disables retrying.
	MaxRetries int
	// OnDebug receives per-attempt diagnostics when set.
	OnDebug func(format string, args ...any)
}

func (c *BackendConfig) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *BackendConfig) debug(format string, args ...any) {
	if c.OnDebug != nil {
		c.OnDebug(format, args...)
	}
}

// BackendError describes a non-2xx response or an unusable response body.
type BackendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("backend returned status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, truncate(e.Body, 200))
	default:
		return fmt.Sprintf("backend response: %v", e.Err)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// ErrMissingTranslation is returned when the response has no usable
// translatedText field.
var ErrMissingTranslation = errors.New("response has no translatedText string")

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   atomic.Bool
	pauseEnd time.Time
}

func (r *rateLimitState) pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end := time.Now().Add(d)
	if end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	r.paused.Store(true)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.paused.Load() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.paused.Store(false)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP backend
// ---------------------------------------------------------------------------

// HTTPBackend calls a LibreTranslate-compatible JSON endpoint.
type HTTPBackend struct {
	cfg    BackendConfig
	client *http.Client
	rl     *rateLimitState
}

// NewHTTPBackend returns a backend for cfg. The returned value is safe for
// concurrent use and shares one connection pool.
func NewHTTPBackend(cfg BackendConfig) (*HTTPBackend, error) {
	if cfg.URL == "" {
		return nil, errors.New("backend URL is empty")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.URL, err)
	}
	client, err := makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout())
	if err != nil {
		return nil, err
	}
	return &HTTPBackend{cfg: cfg, client: client, rl: &rateLimitState{}}, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := cleanhttp.DefaultPooledTransport()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

// Translate sends text to the backend and returns the translatedText field.
func (b *HTTPBackend) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	maxRetries := b.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait if globally paused (rate limit seen by another worker)
		if err := b.rl.waitIfPaused(ctx); err != nil {
			return "", err
		}

		b.cfg.debug("POST %s attempt %d/%d target=%s", b.cfg.URL, attempt+1, maxRetries+1, targetLang)

		translated, retryAfter, err := b.do(ctx, body)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) || attempt == maxRetries {
			break
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		if retryAfter > 0 {
			wait = retryAfter
			b.rl.pause(retryAfter)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// do performs one attempt. retryAfter is set for 429 responses.
func (b *HTTPBackend) do(ctx context.Context, body []byte) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.effectiveTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", parseRetryAfter(resp.Header.Get("Retry-After")), &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	text, err := extractTranslatedText(respBody)
	if err != nil {
		return "", 0, &BackendError{StatusCode: resp.StatusCode, Err: err}
	}
	return text, 0, nil
}

// extractTranslatedText pulls the translatedText string out of a response.
// A missing field or a non-string value is an error.
func extractTranslatedText(body []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("parsing response JSON: %w", err)
	}
	raw, ok := fields["translatedText"]
	if !ok {
		return "", ErrMissingTranslation
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: got %s", ErrMissingTranslation, truncate(string(raw), 40))
	}
	return text, nil
}

// retryable reports whether an attempt error is worth retrying: transport
// failures, 5xx and 429. Malformed 2xx bodies and other 4xx are permanent.
func retryable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.StatusCode == http.StatusTooManyRequests || be.StatusCode >= 500
	}
	return true
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Falls back to 5 seconds.
func parseRetryAfter(v string) time.Duration {
	const fallback = 5 * time.Second
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
