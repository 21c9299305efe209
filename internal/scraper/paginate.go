package scraper

import (
	"context"
	"time"

	"github.com/jimezsa/jobscrape/internal/pace"
	"github.com/rs/zerolog"
)

// PageFunc processes one listing page and reports how many articles it held.
type PageFunc func(ctx context.Context, page int) (int, error)

// StopReason tells why pagination ended.
type StopReason string

const (
	StopBudget    StopReason = "budget"
	StopEmpty     StopReason = "empty"
	StopError     StopReason = "error"
	StopCancelled StopReason = "cancelled"
)

// PageSummary describes a finished pagination.
type PageSummary struct {
	// Visited counts pages that produced at least one article.
	Visited  int
	Articles int
	Stop     StopReason
	// LastErr is the listing error that ended the run, if any.
	LastErr error
}

// Paginator walks listing pages 1..MaxPages and stops at the first page
// without articles.
type Paginator struct {
	MaxPages int
	Delay    time.Duration
	// Retries is how many more times a page whose fetch failed is tried
	// before the failure is taken as the end of results.
	Retries int
	Logger  zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Run calls fn for each page in order. The delay is waited between pages
// only, never after the last one.
func (p *Paginator) Run(ctx context.Context, fn PageFunc) PageSummary {
	sleep := p.sleep
	if sleep == nil {
		sleep = pace.Sleep
	}
	summary := PageSummary{Stop: StopBudget}

	for page := 1; page <= p.MaxPages; page++ {
		count, err := fn(ctx, page)
		for attempt := 1; err != nil && attempt <= p.Retries && ctx.Err() == nil; attempt++ {
			p.Logger.Warn().Err(err).Int("page", page).Int("attempt", attempt).Msg("listing page failed, retrying")
			if sleep(ctx, p.Delay) != nil {
				break
			}
			count, err = fn(ctx, page)
		}

		switch {
		case ctx.Err() != nil:
			summary.Stop = StopCancelled
			return summary
		case err != nil:
			p.Logger.Error().Err(err).Int("page", page).Msg("listing page failed, stopping")
			summary.Stop = StopError
			summary.LastErr = err
			return summary
		case count == 0:
			p.Logger.Info().Int("page", page).Msg("no jobs found on page, stopping")
			summary.Stop = StopEmpty
			return summary
		}

		summary.Visited++
		summary.Articles += count
		if page == p.MaxPages {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			summary.Stop = StopCancelled
			return summary
		}
	}
	return summary
}
