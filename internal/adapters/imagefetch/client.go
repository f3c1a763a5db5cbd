// Package imagefetch downloads listing images over HTTP with client-side rate
// limiting and bounded retries.
package imagefetch

import (
	"compress/gzip"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"trip_hotel/internal/adapters/observability"
)

const (
	maxAttempts     = 4
	defaultMaxBytes = 10 << 20
)

var (
	ErrNotFound = errors.New("image: not found")
	ErrNotImage = errors.New("image: response is not an image")
	ErrTooLarge = errors.New("image: response exceeds size limit")
	ErrEmpty    = errors.New("image: empty response")
)

// StatusError is a non-retryable (or retries exhausted) HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status %d", e.Code)
	}
	return fmt.Sprintf("bad status %d: %s", e.Code, e.Body)
}

type Options struct {
	Timeout   time.Duration
	RPS       float64
	MaxBytes  int64
	UserAgent string
}

type Client struct {
	hc       *http.Client
	rl       *rate.Limiter
	ua       string
	maxBytes int64
}

func New(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.UserAgent == "" {
		o.UserAgent = "trip-hotel-ingestor/1.0"
	}
	burst := int(o.RPS)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		hc: &http.Client{
			Timeout: o.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				MaxIdleConnsPerHost:   8,
			},
		},
		rl:       rate.NewLimiter(rate.Limit(o.RPS), burst),
		ua:       o.UserAgent,
		maxBytes: o.MaxBytes,
	}
}

// Fetch returns the decoded image body at rawURL.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("image: invalid url %q", rawURL)
	}

	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		last := i == maxAttempts-1

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "image/*")
		// decoded below; setting it disables the transport's transparent gzip
		req.Header.Set("Accept-Encoding", "gzip, br")
		req.Header.Set("User-Agent", c.ua)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("image", u.Host, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if !last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("image", u.Host, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body, err := c.readBody(resp)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			if err := checkImage(resp.Header.Get("Content-Type"), body); err != nil {
				return nil, err
			}
			return body, nil

		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			drain(resp)
			return nil, ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			drain(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &StatusError{Code: resp.StatusCode}
			if !last && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}
	return nil, lastErr
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > c.maxBytes {
		return nil, ErrTooLarge
	}

	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("image: gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("image: unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	// one byte over the limit tells a full read from a truncated one
	body, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("image: read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}

// checkImage accepts a body that either sniffs as an image or is declared as
// one (SVG sniffs as text/xml).
func checkImage(declared string, body []byte) error {
	if len(body) == 0 {
		return ErrEmpty
	}
	sniffed := http.DetectContentType(body)
	if strings.HasPrefix(sniffed, "image/") {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(declared), "image/") && !strings.HasPrefix(sniffed, "text/html") {
		return nil
	}
	return fmt.Errorf("%w (%s)", ErrNotImage, sniffed)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
