package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobscrape/internal/config"
	"github.com/jimezsa/jobscrape/internal/detail"
	"github.com/jimezsa/jobscrape/internal/export"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/jimezsa/jobscrape/internal/scraper"
	"github.com/jimezsa/jobscrape/internal/seen"
	"github.com/jimezsa/jobscrape/internal/store"
	"github.com/jimezsa/jobscrape/internal/ui"
	"github.com/rs/zerolog"
)

type testEnv struct {
	ctx *Context
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestContext() testEnv {
	var out, errOut bytes.Buffer
	return testEnv{
		ctx: &Context{
			Out:    &out,
			Err:    &errOut,
			UI:     ui.New(&out, &errOut, ui.ColorNever, true),
			Config: config.DefaultConfig(),
			Logger: zerolog.Nop(),
		},
		out: &out,
		err: &errOut,
	}
}

// fakePages serves canned pages; unknown URLs get an empty document.
type fakePages struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (p *fakePages) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	p.mu.Lock()
	p.calls = append(p.calls, url)
	body := p.pages[url]
	p.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
}

func (p *fakePages) FetchIsolated(ctx context.Context, url string) (*goquery.Document, error) {
	return p.Fetch(ctx, url)
}

func (p *fakePages) Close() error { return nil }

func (p *fakePages) count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func listing(ids ...int) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, `<article class="bg-white"><h2 class="text-base"><a href="/offres-emploi/%d/">Offre %d</a></h2></article>`, id, id)
	}
	return b.String()
}

func keejob(t *testing.T) *scraper.Site {
	t.Helper()
	registry, err := scraper.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	site, err := registry.Get(scraper.SiteKeejob)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return site
}

func fastSettings() models.ScraperConfig {
	return models.ScraperConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		Backoff:      time.Millisecond,
		ArticleDelay: time.Millisecond,
		PageDelay:    time.Millisecond,
		Workers:      2,
	}
}

func openTestStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestScrapeWritesFilesAndStore(t *testing.T) {
	dir := t.TempDir()
	env := newTestContext()
	site := keejob(t)
	first, _ := site.URL(models.SearchParams{}, 1)
	pages := &fakePages{pages: map[string]string{first: listing(1, 2)}}
	st := openTestStore(t, dir)
	stem := filepath.Join(dir, "keejob_listings")

	run := scrapeRun{
		site:     site,
		params:   (&ScrapeCmd{Pages: 3}).params(site, env.ctx.Config),
		settings: fastSettings(),
		pages:    pages,
		store:    st,
		stem:     stem,
	}
	if err := (&ScrapeCmd{}).execute(context.Background(), env.ctx, run); err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	doc, _, err := export.ReadDocument(stem + ".json")
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if doc.TotalJobs != 2 || doc.Jobs[0].Title != "Offre 1" || doc.Jobs[1].Title != "Offre 2" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if got := doc.Jobs[0].FullDescription; got != detail.NotFound {
		t.Fatalf("FullDescription = %q, want %q", got, detail.NotFound)
	}
	if doc.SearchParams.Pages != 3 || doc.SearchParams.Categories[0] != "24" {
		t.Fatalf("unexpected params: %+v", doc.SearchParams)
	}
	if _, err := os.Stat(stem + ".csv"); err != nil {
		t.Fatalf("csv not written: %v", err)
	}
	if !strings.Contains(env.out.String(), "SCRAPING STATISTICS") || !strings.Contains(env.out.String(), "Saved 2 jobs") {
		t.Fatalf("unexpected stdout:\n%s", env.out.String())
	}

	infos, err := st.Sessions(context.Background(), 0)
	if err != nil || len(infos) != 1 || infos[0].TotalJobs != 2 {
		t.Fatalf("stored sessions = %+v, %v", infos, err)
	}

	// A second run that skips stored postings finds nothing new and fetches
	// no detail page.
	again := newTestContext()
	before := pages.count("https://www.keejob.com/offres-emploi/1/")
	run.settings.SkipSeen = true
	run.stem = filepath.Join(dir, "second")
	if err := (&ScrapeCmd{}).execute(context.Background(), again.ctx, run); err != nil {
		t.Fatalf("second execute() error = %v", err)
	}
	if !strings.Contains(again.err.String(), "No jobs found") {
		t.Fatalf("expected zero-jobs warning, got %q", again.err.String())
	}
	if _, err := os.Stat(run.stem + ".json"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no file should be written for zero jobs, stat err = %v", err)
	}
	if after := pages.count("https://www.keejob.com/offres-emploi/1/"); after != before {
		t.Fatalf("stored posting was fetched again (%d -> %d)", before, after)
	}
}

func TestScrapeInterruptedBeforeFirstPage(t *testing.T) {
	env := newTestContext()
	site := keejob(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&ScrapeCmd{}).execute(ctx, env.ctx, scrapeRun{
		site:     site,
		params:   site.Params(models.SearchParams{}),
		settings: fastSettings(),
		pages:    &fakePages{},
		stem:     filepath.Join(t.TempDir(), "out"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("execute() error = %v, want context.Canceled", err)
	}
}

func TestScrapeSettingsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Timeout = "10s"
	cfg.Workers = 1

	got := (&ScrapeCmd{Timeout: 3 * time.Second, Workers: 4, SkipSeen: true}).settings(cfg)
	if got.Timeout != 3*time.Second || got.Workers != 4 || !got.SkipSeen {
		t.Fatalf("settings() = %+v", got)
	}
	if got.MaxRetries != cfg.MaxRetries {
		t.Fatalf("MaxRetries = %d, want %d", got.MaxRetries, cfg.MaxRetries)
	}
}

func TestScrapeRejectsSkipSeenWithoutDatabase(t *testing.T) {
	env := newTestContext()
	err := (&ScrapeCmd{SkipSeen: true, NoDB: true}).Run(env.ctx)
	if err == nil || !strings.Contains(err.Error(), "--skip-seen") {
		t.Fatalf("Run() error = %v", err)
	}
}

func writeSession(t *testing.T, dir string) export.Files {
	t.Helper()
	session := models.NewSession(models.SearchParams{Site: "keejob", Pages: 1})
	session.Append(models.Job{Title: "Offre 1", Company: "Acme", URL: "https://www.keejob.com/offres-emploi/1/"})
	session.Append(models.Job{Title: "Offre 2", Company: "Beta"})
	files, err := export.WriteFiles(filepath.Join(dir, "keejob_listings"), session)
	if err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	return files
}

func TestShowMarkdown(t *testing.T) {
	env := newTestContext()
	files := writeSession(t, t.TempDir())

	if err := (&ShowCmd{File: files.JSON, Format: "md", Limit: 1}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), "- **Offre 1** (Acme)") || strings.Contains(env.out.String(), "Offre 2") {
		t.Fatalf("unexpected output:\n%s", env.out.String())
	}
}

func TestResolveFormatRespectsGlobalFlags(t *testing.T) {
	got, err := resolveFormat(&Context{Out: io.Discard, JSONOutput: true}, "md")
	if err != nil || got != export.FormatJSON {
		t.Fatalf("resolveFormat() = %q, %v, want %q", got, err, export.FormatJSON)
	}
	got, _ = resolveFormat(&Context{Out: io.Discard, PlainText: true}, "")
	if got != export.FormatTSV {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatTSV)
	}
	got, _ = resolveFormat(&Context{Out: io.Discard}, "")
	if got != export.FormatCSV {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatCSV)
	}
}

func TestValidateReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	env := newTestContext()
	good := writeSession(t, dir).JSON
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"scraped_at":"now","jobs":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	err := (&ValidateCmd{Files: []string{good, bad}}).Run(env.ctx)
	if err == nil || err.Error() != "1 of 2 files failed validation" {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), good+": ok") {
		t.Fatalf("good file not reported: %q", env.out.String())
	}
	if !strings.Contains(env.err.String(), bad+": ") {
		t.Fatalf("bad file not reported: %q", env.err.String())
	}
}

func TestHistoryListAndExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "jobs.db")
	st, err := store.Open(db)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	ctx := context.Background()
	session := models.NewSession(models.SearchParams{Site: "naukrigulf", Keywords: "go", Pages: 1})
	if err := st.BeginSession(ctx, session); err != nil {
		t.Fatal(err)
	}
	job := models.Job{Title: "Backend Engineer", URL: "https://www.naukrigulf.com/job-1"}
	if err := st.Sink(session).Write(ctx, job); err != nil {
		t.Fatal(err)
	}
	session.Append(job)
	if err := st.FinishSession(ctx, session); err != nil {
		t.Fatal(err)
	}
	st.Close()

	env := newTestContext()
	env.ctx.PlainText = true
	if err := (&HistoryListCmd{DB: db, Limit: 5}).Run(env.ctx); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.HasPrefix(env.out.String(), session.ID.String()+"\tnaukrigulf\t") {
		t.Fatalf("unexpected list output %q", env.out.String())
	}

	stem := filepath.Join(dir, "export")
	if err := (&HistoryExportCmd{Session: session.ID.String(), DB: db, Output: stem}).Run(newTestContext().ctx); err != nil {
		t.Fatalf("export error = %v", err)
	}
	doc, _, err := export.ReadDocument(stem + ".json")
	if err != nil || doc.TotalJobs != 1 || doc.Jobs[0].Title != "Backend Engineer" {
		t.Fatalf("exported document = %+v, %v", doc, err)
	}
}

func TestSeenUpdateMergesIntoHistory(t *testing.T) {
	dir := t.TempDir()
	env := newTestContext()
	history := filepath.Join(dir, "seen.json")
	input := writeSession(t, dir).JSON

	cmd := &SeenUpdateCmd{Seen: history, Input: input}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Running it again with the same input is idempotent.
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() (2nd) error = %v", err)
	}

	got, err := seen.ReadJobs(history)
	if err != nil {
		t.Fatalf("ReadJobs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestProxyCheckTargetsSiteBaseURL(t *testing.T) {
	env := newTestContext()

	got, err := (&ProxyCheckCmd{Site: "naukrigulf"}).target(env.ctx)
	if err != nil || got != "https://www.naukrigulf.com" {
		t.Fatalf("target() = %q, %v", got, err)
	}
	got, _ = (&ProxyCheckCmd{Site: "naukrigulf", Target: "https://example.com"}).target(env.ctx)
	if got != "https://example.com" {
		t.Fatalf("target() = %q, want explicit target", got)
	}
	if _, err := (&ProxyCheckCmd{Site: "monster"}).target(env.ctx); err == nil {
		t.Fatalf("expected unknown site error")
	}
}
