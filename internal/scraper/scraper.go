// Package scraper drives a scrape run: it walks the listing pages of a site,
// assembles one record per article and hands records to the sinks in listing
// order.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobscrape/internal/detail"
	"github.com/jimezsa/jobscrape/internal/extract"
	"github.com/jimezsa/jobscrape/internal/fetch"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/jimezsa/jobscrape/internal/pace"
	"github.com/jimezsa/jobscrape/internal/seen"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sink receives records as soon as they are assembled.
type Sink interface {
	Write(ctx context.Context, job models.Job) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, job models.Job) error

func (f SinkFunc) Write(ctx context.Context, job models.Job) error {
	return f(ctx, job)
}

// Stats counts what happened during a run.
type Stats struct {
	Pages      int
	Articles   int
	Records    int
	Duplicates int
	Empty      int
	Failed     int
	Details    map[detail.Kind]int
	Stop       StopReason
	StopErr    error
}

// Scraper runs one site.
type Scraper struct {
	Site      *Site
	Pages     fetch.Fetcher
	Assembler *Assembler
	Paginator *Paginator
	Workers   int
	Sinks     []Sink
	Logger    zerolog.Logger
}

// New wires a Scraper for site. details may be nil to skip detail pages.
// A nil index keeps every record, repeated postings included.
func New(site *Site, pages fetch.Fetcher, details DetailFetcher, index *seen.Index, cfg models.ScraperConfig, logger zerolog.Logger) *Scraper {
	logger = logger.With().Str("site", site.Name).Logger()
	articleDelay := cfg.ArticleDelay
	if articleDelay <= 0 {
		articleDelay = site.ArticleDelay
	}
	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = site.PageDelay
	}
	return &Scraper{
		Site:  site,
		Pages: pages,
		Assembler: &Assembler{
			Site:     site,
			Resolver: extract.NewResolver(site.BaseURL, logger),
			Details:  details,
			Pacer:    pace.New(articleDelay),
			Seen:     index,
			Logger:   logger,
		},
		Paginator: &Paginator{
			Delay:   pageDelay,
			Retries: cfg.PageRetries,
			Logger:  logger,
		},
		Workers: cfg.Workers,
		Logger:  logger,
	}
}

// Run scrapes up to session.Params.Pages pages and appends the records to
// the session. The error is non-nil only when ctx ended the run early; the
// session then holds everything collected so far.
func (s *Scraper) Run(ctx context.Context, session *models.Session) (Stats, error) {
	stats := Stats{Details: map[detail.Kind]int{}}
	params := session.Params
	s.Logger.Info().
		Str("session", session.ID.String()).
		Str("keywords", params.Keywords).
		Str("categories", strings.Join(params.Categories, ",")).
		Str("location", params.Location).
		Str("contract_type", params.ContractType).
		Int("pages", params.Pages).
		Msg("starting scrape")

	s.Paginator.MaxPages = params.Pages
	summary := s.Paginator.Run(ctx, s.page(session, &stats))
	stats.Pages = summary.Visited
	stats.Articles = summary.Articles
	stats.Stop = summary.Stop
	stats.StopErr = summary.LastErr

	s.Logger.Info().Int("jobs", stats.Records).Int("pages", stats.Pages).Str("stop", string(stats.Stop)).Msg("scrape finished")
	if summary.Stop == StopCancelled {
		return stats, ctx.Err()
	}
	return stats, nil
}

type assembled struct {
	out Assembly
	err error
}

func (s *Scraper) page(session *models.Session, stats *Stats) PageFunc {
	return func(ctx context.Context, page int) (int, error) {
		target, err := s.Site.URL(session.Params, page)
		if err != nil {
			return 0, err
		}
		s.Logger.Info().Int("page", page).Str("url", target).Msg("scraping page")
		doc, err := s.Pages.Fetch(ctx, target)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", page, err)
		}

		articles := extract.FindAll(doc.Selection, s.Site.Articles)
		total := articles.Length()
		s.Logger.Info().Int("page", page).Int("articles", total).Msg("found job listings")
		if total == 0 {
			return 0, nil
		}

		emit := newEmitter(func(i int, r assembled) {
			s.record(ctx, session, stats, page, i, total, r)
		})
		workers := s.Workers
		if workers < 1 {
			workers = 1
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		articles.EachWithBreak(func(i int, article *goquery.Selection) bool {
			if gctx.Err() != nil {
				return false
			}
			g.Go(func() error {
				s.Logger.Debug().Int("page", page).Int("job", i+1).Int("of", total).Msg("processing job")
				out, err := s.Assembler.Assemble(gctx, article)
				emit.done(i, assembled{out: out, err: err})
				return nil
			})
			return true
		})
		_ = g.Wait()
		return total, ctx.Err()
	}
}

// record runs under the emitter lock, so session and stats have one writer.
func (s *Scraper) record(ctx context.Context, session *models.Session, stats *Stats, page, i, total int, r assembled) {
	if r.out.Detail != nil {
		stats.Details[r.out.Detail.Kind]++
	}
	switch {
	case r.err != nil:
		if ctx.Err() != nil {
			return
		}
		stats.Failed++
		s.Logger.Error().Err(r.err).Int("page", page).Int("job", i+1).Msg("error parsing job listing")
	case r.out.Skip == SkipDuplicate:
		stats.Duplicates++
	case r.out.Skip == SkipEmpty:
		stats.Empty++
		s.Logger.Debug().Int("page", page).Int("job", i+1).Msg("article produced no fields")
	default:
		session.Append(r.out.Job)
		stats.Records++
		sinkCtx := context.WithoutCancel(ctx)
		for _, sink := range s.Sinks {
			if err := sink.Write(sinkCtx, r.out.Job); err != nil {
				s.Logger.Warn().Err(err).Str("url", r.out.Job.URL).Msg("sink write failed")
			}
		}
		s.Logger.Debug().Int("page", page).Int("job", i+1).Int("of", total).Str("title", r.out.Job.Title).Msg("job collected")
	}
}

// emitter releases results in index order whatever order they finish in.
type emitter struct {
	mu      sync.Mutex
	next    int
	pending map[int]assembled
	emit    func(int, assembled)
}

func newEmitter(emit func(int, assembled)) *emitter {
	return &emitter{pending: map[int]assembled{}, emit: emit}
}

func (e *emitter) done(i int, r assembled) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[i] = r
	for {
		r, ok := e.pending[e.next]
		if !ok {
			return
		}
		delete(e.pending, e.next)
		e.emit(e.next, r)
		e.next++
	}
}
