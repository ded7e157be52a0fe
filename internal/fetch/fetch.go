// Package fetch is the HTTP transport under the source host client. It
// bounds response bodies, surfaces rate-limit quota headers and turns
// rendered README HTML into prose.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the verifier to the host
	DefaultUserAgent = "trustchain-skill-verifier/1.0"

	// DefaultMaxBodyBytes caps how much of a response body is read
	DefaultMaxBodyBytes int64 = 1 << 20
)

// Quota is the rate-limit state a host reports in X-RateLimit-* headers.
// Known is false when the response carried none of them.
type Quota struct {
	Known     bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Exhausted reports whether the host said no requests remain
func (q Quota) Exhausted() bool {
	return q.Known && q.Remaining == 0
}

// Response is a fully read HTTP response
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	Truncated bool // body was longer than the transport's limit
	Quota     Quota
}

// Error is a transport failure. Status is zero when no response arrived.
type Error struct {
	URL     string
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusOf returns the HTTP status carried by err, or zero
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// Options configures a Transport
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string // sent on every request
	MaxBodyBytes int64
}

// Transport issues bounded GET requests with shared headers
type Transport struct {
	http *http.Client
	opts Options
}

// New creates a Transport, filling zero options with defaults
func New(o Options) *Transport {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Transport{http: &http.Client{Timeout: o.Timeout}, opts: o}
}

// Get fetches rawURL. Per-call headers override the shared ones.
// A non-2xx answer returns the Response together with an *Error holding its status.
func (t *Transport) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer drainAndClose(resp.Body)

	// one extra byte tells a body of exactly the limit apart from a longer one
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read body", Cause: err}
	}
	out := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
		Quota:  ParseQuota(resp.Header),
	}
	if int64(len(body)) > t.opts.MaxBodyBytes {
		out.Body = body[:t.opts.MaxBodyBytes]
		out.Truncated = true
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &Error{URL: rawURL, Message: fmt.Sprintf("status %d", resp.StatusCode), Status: resp.StatusCode}
	}
	return out, nil
}

// ParseQuota reads X-RateLimit-Limit, -Remaining and -Reset (unix seconds)
func ParseQuota(h http.Header) Quota {
	var q Quota
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		q.Limit, q.Known = v, true
	}
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil {
		q.Remaining, q.Known = v, true
	}
	if v, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		q.Reset, q.Known = time.Unix(v, 0), true
	}
	return q
}

func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	_ = rc.Close()
}

// proseNoise are rendered markdown elements that carry no prose
var proseNoise = []string{"pre", "img", "svg", "script", "style", "table"}

// Prose returns the readable text of an HTML fragment, one block per line.
// Code listings, images and tables are dropped along with any extra selectors.
func Prose(html string, drop ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(strings.Join(slices.Concat(proseNoise, drop), ", ")).Remove()

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		// nested blocks are reported by their innermost element
		if s.Find("p, li").Length() > 0 {
			return
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		if text := strings.Join(strings.Fields(doc.Text()), " "); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
