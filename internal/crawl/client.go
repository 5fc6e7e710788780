package crawl

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// FetchError represents a failed page fetch
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := "failed to fetch " + e.URL
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetcherConfig holds fetch throttling configuration
type FetcherConfig struct {
	Concurrency       int     `json:"concurrency"`
	RequestTimeoutSec int     `json:"requestTimeoutSec"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

// DefaultFetcherConfig returns the default fetch configuration
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Concurrency:       5,
		RequestTimeoutSec: 30,
		RequestsPerSecond: 10,
	}
}

// Fetcher downloads store pages with bounded concurrency and a shared
// rate limit. All crawl stages go through one Fetcher so a single job
// never opens more than Concurrency connections to a store.
type Fetcher struct {
	client    *http.Client
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	userAgent string
	logger    zerolog.Logger
}

// NewFetcher creates a fetcher with the given throttling config.
// Every fetcher gets a fresh random User-Agent so stores cannot
// fingerprint the worker across restarts.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultFetcherConfig().Concurrency
	}
	if cfg.RequestTimeoutSec <= 0 {
		cfg.RequestTimeoutSec = DefaultFetcherConfig().RequestTimeoutSec
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultFetcherConfig().RequestsPerSecond
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency),
		userAgent: randomUserAgent(),
		logger:    log.With().Str("component", "fetcher").Logger(),
	}
}

const userAgentChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomUserAgent() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = userAgentChars[rand.Intn(len(userAgentChars))]
	}
	return string(b)
}

// FetchDocument downloads one page and parses it into a goquery
// document. The body is decoded to UTF-8 first; the supported stores
// serve a mix of UTF-8 and Windows-1251.
func (f *Fetcher) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*")

	f.logger.Debug().Str("url", pageURL).Msg("Fetching page")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode, Err: err}
	}

	enc := DetectEncoding(body, resp.Header.Get("Content-Type"))
	text, err := DecodeBody(body, enc)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode, Err: err}
	}
	return doc, nil
}

// UserAgent returns the fetcher's User-Agent string.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}
