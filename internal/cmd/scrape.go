package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jimezsa/jobscrape/internal/browser"
	"github.com/jimezsa/jobscrape/internal/config"
	"github.com/jimezsa/jobscrape/internal/detail"
	"github.com/jimezsa/jobscrape/internal/export"
	"github.com/jimezsa/jobscrape/internal/extract"
	"github.com/jimezsa/jobscrape/internal/fetch"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/jimezsa/jobscrape/internal/network"
	"github.com/jimezsa/jobscrape/internal/scraper"
	"github.com/jimezsa/jobscrape/internal/seen"
	"github.com/jimezsa/jobscrape/internal/store"
	"github.com/rs/zerolog"
)

const driverHTTP = "http"

type ScrapeCmd struct {
	Site         string        `short:"s" help:"Site template to scrape (default from config)."`
	Keywords     string        `short:"k" help:"Search keywords."`
	Categories   []string      `help:"Category or industry IDs, comma-separated (default from the template)."`
	Location     string        `help:"Job location (default from the template)."`
	ContractType string        `name:"contract-type" help:"Contract type filter, for sites that support one."`
	Pages        int           `help:"Maximum listing pages to visit (default from the template)."`
	Output       string        `short:"o" help:"Output file stem; writes <stem>.csv and <stem>.json (default <site>_listings)."`
	Driver       string        `help:"Fetch backend: http, chromedp, playwright, selenium." enum:",http,chromedp,playwright,selenium" default:""`
	Workers      int           `help:"Articles assembled concurrently."`
	Timeout      time.Duration `help:"Per-request timeout."`
	Retries      int           `help:"Detail page attempts before giving up."`
	Headed       bool          `help:"Show the browser window (browser drivers)."`
	Templates    string        `help:"YAML file with extra or overriding site templates."`
	Proxies      string        `help:"Comma-separated proxy URLs (http driver)."`
	DB           string        `name:"db" help:"SQLite database receiving every record as it is scraped."`
	NoDB         bool          `name:"no-db" help:"Do not store records in the database."`
	SkipSeen     bool          `help:"Skip postings whose URL is already stored for the site."`
}

// scrapeRun is everything a run needs once setup has succeeded.
type scrapeRun struct {
	site     *scraper.Site
	params   models.SearchParams
	settings models.ScraperConfig
	pages    fetch.Fetcher
	store    *store.Store
	stem     string
}

func (c *ScrapeCmd) Run(ctx *Context) error {
	if c.SkipSeen && c.NoDB {
		return fmt.Errorf("--skip-seen requires the database; drop --no-db")
	}

	registry, err := loadRegistry(ctx, c.Templates)
	if err != nil {
		return err
	}
	site, err := registry.Get(firstNonEmpty(c.Site, ctx.Config.DefaultSite))
	if err != nil {
		return err
	}
	settings := c.settings(ctx.Config)

	driver := firstNonEmpty(c.Driver, ctx.Config.Driver, driverHTTP)
	pages, err := c.openFetcher(ctx, site, driver, settings)
	if err != nil {
		return fmt.Errorf("start %s driver: %w", driver, err)
	}
	defer pages.Close()

	var st *store.Store
	if !c.NoDB {
		st, err = c.openStore(ctx.Config)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.execute(runCtx, ctx, scrapeRun{
		site:     site,
		params:   c.params(site, ctx.Config),
		settings: settings,
		pages:    pages,
		store:    st,
		stem:     firstNonEmpty(c.Output, site.Name+"_listings"),
	})
}

// settings layers the command-line flags over the config file.
func (c *ScrapeCmd) settings(cfg config.Config) models.ScraperConfig {
	sc := cfg.Scraper()
	if c.Timeout > 0 {
		sc.Timeout = c.Timeout
	}
	if c.Retries > 0 {
		sc.MaxRetries = c.Retries
	}
	if c.Workers > 0 {
		sc.Workers = c.Workers
	}
	sc.SkipSeen = c.SkipSeen
	return sc
}

func (c *ScrapeCmd) params(site *scraper.Site, cfg config.Config) models.SearchParams {
	return site.Params(models.SearchParams{
		Keywords:     c.Keywords,
		Categories:   c.Categories,
		Location:     c.Location,
		ContractType: c.ContractType,
		Pages:        defaultInt(c.Pages, cfg.DefaultPages),
	})
}

func (c *ScrapeCmd) openFetcher(ctx *Context, site *scraper.Site, driver string, sc models.ScraperConfig) (fetch.Fetcher, error) {
	if driver == driverHTTP {
		proxies, err := config.LoadProxies(c.Proxies)
		if err != nil {
			return nil, err
		}
		var rotator *network.Rotator
		if len(proxies) > 0 {
			rotator, err = network.NewRotator(proxies, network.DefaultBanDuration)
			if err != nil {
				return nil, err
			}
		}
		client, err := network.NewClient(network.Options{Rotator: rotator, Timeout: sc.Timeout})
		if err != nil {
			return nil, err
		}
		return fetch.NewHTTP(client, sc.Timeout, site.Headers), nil
	}

	d, err := browser.New(driver, browser.Options{
		Headless:     ctx.Config.Headless && !c.Headed,
		WebDriverURL: ctx.Config.WebDriverURL,
		Timeout:      sc.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return browser.NewFetcher(browser.NewSession(d, ctx.Logger), sc.Timeout), nil
}

func (c *ScrapeCmd) openStore(cfg config.Config) (*store.Store, error) {
	path := firstNonEmpty(c.DB, cfg.Database)
	if path == "" {
		var err error
		if path, err = config.DatabasePath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(path)
}

// execute runs the scrape and writes the output files. An interrupted run
// still writes what it collected and then reports the interruption.
func (c *ScrapeCmd) execute(runCtx context.Context, ctx *Context, run scrapeRun) error {
	session := models.NewSession(run.params)
	// Repeated postings are only dropped when --skip-seen asks for it.
	var index *seen.Index
	if run.settings.SkipSeen {
		index = seen.NewIndex()
	}
	details := detail.New(run.pages, extract.NewResolver(run.site.BaseURL, ctx.Logger), run.site.DescriptionField(), detail.Options{
		MaxRetries: run.settings.MaxRetries,
		Backoff:    run.settings.Backoff,
		Logger:     ctx.Logger,
	})
	s := scraper.New(run.site, run.pages, details, index, run.settings, ctx.Logger)

	if run.store != nil {
		if index != nil {
			urls, err := run.store.SeenURLs(runCtx, run.site.Name)
			if err != nil {
				return fmt.Errorf("read stored urls: %w", err)
			}
			index.AddURLs(urls...)
			ctx.Logger.Info().Int("urls", len(urls)).Msg("skipping postings already stored")
		}
		if err := run.store.BeginSession(runCtx, session); err != nil {
			return err
		}
		s.Sinks = append(s.Sinks, run.store.Sink(session))
	}

	stats, runErr := s.Run(runCtx, session)
	if run.store != nil {
		if err := run.store.FinishSession(context.WithoutCancel(runCtx), session); err != nil {
			ctx.Logger.Warn().Err(err).Msg("failed to finalize stored session")
		}
	}
	logStats(ctx.Logger, stats)
	if runErr != nil {
		ctx.UI.Warnf("Interrupted after %d jobs.", len(session.Jobs))
	}

	if len(session.Jobs) == 0 {
		ctx.UI.Warnf("No jobs found; nothing written.")
		return interrupted(runErr)
	}

	files, err := export.WriteFiles(run.stem, session)
	if err != nil {
		return err
	}
	if ctx.JSONOutput {
		if err := export.WriteDocument(ctx.Out, session); err != nil {
			return err
		}
		ctx.UI.Notef("Saved %d jobs to %s and %s", len(session.Jobs), files.CSV, files.JSON)
		return interrupted(runErr)
	}

	ctx.UI.Successf("Saved %d jobs to %s and %s", len(session.Jobs), files.CSV, files.JSON)
	if err := export.WriteSummary(ctx.Out, export.Summarize(session.Jobs)); err != nil {
		return err
	}
	return interrupted(runErr)
}

func interrupted(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("scrape interrupted: %w", err)
	}
	return err
}

func logStats(logger zerolog.Logger, stats scraper.Stats) {
	ev := logger.Info().
		Int("pages", stats.Pages).
		Int("articles", stats.Articles).
		Int("records", stats.Records).
		Int("duplicates", stats.Duplicates).
		Int("empty", stats.Empty).
		Int("failed", stats.Failed).
		Str("stop", string(stats.Stop))
	for kind, n := range stats.Details {
		ev = ev.Int("details_"+string(kind), n)
	}
	if stats.StopErr != nil {
		ev = ev.AnErr("stop_error", stats.StopErr)
	}
	ev.Msg("run statistics")
}
