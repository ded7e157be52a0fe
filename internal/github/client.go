// Package github provides a GitHub REST v3 client, a clone manager and a
// cached service that collects per-user repository evidence.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/maniishbhusal/TrustChain/internal/fetch"
	"github.com/maniishbhusal/TrustChain/internal/logger"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	defaultUA      = "trustchain-skill-verifier"
	defaultRPS     = 5.0

	acceptDefault = "application/vnd.github+json"
	acceptTopics  = "application/vnd.github.mercy-preview+json"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Empty means unauthenticated, which has a very low quota
	Token string

	// Client-side pacing; zero means the default
	RequestsPerSecond float64
}

// StatusError wraps non-2xx HTTP responses from GitHub
type StatusError struct {
	Status int
	Path   string
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github %s: status %d", e.Path, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status code
func (e *StatusError) HTTPStatus() int { return e.Status }

// IsNotFound reports whether err is a 404 from GitHub
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 or secondary-limit 403
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Status == http.StatusTooManyRequests || se.Status == http.StatusForbidden)
}

// Client is a minimal GitHub REST client. It never retries.
type Client struct {
	http    *fetch.Transport
	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = defaultRPS
	}

	headers := map[string]string{"Accept": acceptDefault}
	if tok := strings.TrimSpace(o.Token); tok != "" {
		headers["Authorization"] = "token " + tok
	}

	return &Client{
		http: fetch.New(fetch.Options{
			Timeout:   o.Timeout,
			UserAgent: o.UserAgent,
			Headers:   headers,
		}),
		opts:    o,
		limiter: rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1),
		log:     logger.Named("github"),
	}
}

// WithLogger replaces the client logger
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

// get issues a paced GET and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.http.Get(ctx, c.opts.BaseURL+path, headers)
	lat := time.Since(start)
	if res != nil {
		ev := c.log.Debug().Str("path", path).Int("status", res.Status).Dur("latency", lat)
		if res.Quota.Known {
			ev = ev.Int("rate_remaining", res.Quota.Remaining)
		}
		ev.Msg("github http response")
		if res.Truncated {
			c.log.Warn().Str("path", path).Msg("github response truncated")
		}
	}

	if status := fetch.StatusOf(err); status != 0 {
		if res != nil && res.Quota.Exhausted() {
			c.log.Warn().Time("reset", res.Quota.Reset).Msg("github rate limit exhausted")
		}
		return nil, &StatusError{Status: status, Path: path, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}
