// Package detail fetches a posting's detail page and extracts its full
// description, retrying requests that time out.
package detail

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jimezsa/jobscrape/internal/extract"
	"github.com/jimezsa/jobscrape/internal/fetch"
	"github.com/jimezsa/jobscrape/internal/pace"
	"github.com/rs/zerolog"
)

// Placeholder values stored in place of a description. They are content, not
// absence: the page was attempted.
const (
	NotFound           = "Description not found on job page"
	MaxRetriesExceeded = "Error: Max retries exceeded"
	ErrorPrefix        = "Error: "
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 2 * time.Second
	// MaxChars caps a stored description, in characters.
	MaxChars = 5000
)

// Kind classifies how a detail fetch ended.
type Kind string

const (
	KindFound     Kind = "found"
	KindNotFound  Kind = "not_found"
	KindFailed    Kind = "failed"
	KindExhausted Kind = "exhausted"
)

// Outcome is what a detail fetch produced. Text is always set: the cleaned
// description or one of the placeholder values.
type Outcome struct {
	Text     string
	Kind     Kind
	Attempts int
	Strategy string
	Err      error
}

// Options tunes the retry policy.
type Options struct {
	MaxRetries int
	Backoff    time.Duration
	Logger     zerolog.Logger
}

// Fetcher loads detail pages in isolation and resolves their description.
type Fetcher struct {
	pages      fetch.Fetcher
	resolver   *extract.Resolver
	field      extract.Field
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(pages fetch.Fetcher, resolver *extract.Resolver, field extract.Field, opts Options) *Fetcher {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	return &Fetcher{
		pages:      pages,
		resolver:   resolver,
		field:      field,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
		sleep:      pace.Sleep,
	}
}

// Fetch never fails: every problem ends up as a placeholder in Outcome.Text.
// Only timeouts are retried, with a fixed backoff between attempts.
func (f *Fetcher) Fetch(ctx context.Context, url string) Outcome {
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		doc, err := f.pages.FetchIsolated(ctx, url)
		if err == nil {
			result := f.resolver.Resolve(doc.Selection, f.field)
			if !result.Found {
				f.logger.Debug().Str("url", url).Msg("description not found")
				return Outcome{Text: NotFound, Kind: KindNotFound, Attempts: attempt}
			}
			return Outcome{
				Text:     Clean(result.Value),
				Kind:     KindFound,
				Attempts: attempt,
				Strategy: result.Strategy,
			}
		}

		if !fetch.IsTimeout(err) || ctx.Err() != nil {
			f.logger.Warn().Err(err).Str("url", url).Msg("detail fetch failed")
			return Outcome{Text: ErrorPrefix + err.Error(), Kind: KindFailed, Attempts: attempt, Err: err}
		}

		f.logger.Warn().Str("url", url).Int("attempt", attempt).Int("max", f.maxRetries).Msg("detail fetch timed out")
		if attempt == f.maxRetries {
			break
		}
		if err := f.sleep(ctx, f.backoff); err != nil {
			return Outcome{Text: ErrorPrefix + err.Error(), Kind: KindFailed, Attempts: attempt, Err: err}
		}
	}
	return Outcome{Text: MaxRetriesExceeded, Kind: KindExhausted, Attempts: f.maxRetries}
}

var spaceRuns = regexp.MustCompile(` +`)

// Clean replaces non-breaking spaces, collapses runs of spaces and keeps the
// first MaxChars characters. Line breaks are left alone.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	return truncate(text, MaxChars)
}

func truncate(text string, max int) string {
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}
