package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobscrape/internal/detail"
	"github.com/jimezsa/jobscrape/internal/extract"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/jimezsa/jobscrape/internal/normalize"
	"github.com/jimezsa/jobscrape/internal/pace"
	"github.com/jimezsa/jobscrape/internal/seen"
	"github.com/rs/zerolog"
)

// DetailFetcher loads the full description of a posting.
type DetailFetcher interface {
	Fetch(ctx context.Context, url string) detail.Outcome
}

// SkipReason tells why an article produced no record.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipDuplicate SkipReason = "duplicate"
	SkipEmpty     SkipReason = "empty"
)

// Assembly is the result of turning one listing article into a record.
type Assembly struct {
	Job    models.Job
	Detail *detail.Outcome
	Skip   SkipReason
}

// Assembler builds records from listing articles: it resolves every field of
// the site, fetches the detail page when the record has a URL and normalizes
// the result.
type Assembler struct {
	Site     *Site
	Resolver *extract.Resolver
	Details  DetailFetcher
	// Pacer spaces detail fetches out. It is shared by all workers.
	Pacer *pace.Pacer
	// Seen holds the keys of records already emitted. Articles whose key is
	// already claimed are skipped before any detail fetch.
	Seen   *seen.Index
	Logger zerolog.Logger
}

// Assemble never lets a panic escape; it is reported as an error so the
// caller can skip the article and carry on with the page.
func (a *Assembler) Assemble(ctx context.Context, article *goquery.Selection) (out Assembly, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assemble article: %v", r)
		}
	}()

	job := a.resolve(article)

	if a.Seen != nil && !a.Seen.Claim(job) {
		a.Logger.Debug().Str("url", job.URL).Str("title", job.Title).Msg("skipping already seen job")
		return Assembly{Job: job, Skip: SkipDuplicate}, nil
	}

	if job.URL != "" && a.Details != nil {
		if err := a.Pacer.Wait(ctx); err != nil {
			return Assembly{}, err
		}
		a.Logger.Info().Str("title", job.Title).Str("url", job.URL).Msg("fetching full details")
		outcome := a.Details.Fetch(ctx, job.URL)
		if ctx.Err() != nil {
			return Assembly{}, ctx.Err()
		}
		job.FullDescription = outcome.Text
		out.Detail = &outcome
	}

	job = normalize.Job(job)
	if job.IsEmpty() {
		out.Skip = SkipEmpty
		return out, nil
	}
	out.Job = job
	return out, nil
}

func (a *Assembler) resolve(article *goquery.Selection) models.Job {
	var job models.Job
	for _, column := range a.Site.FieldNames() {
		result := a.Resolver.Resolve(article, a.Site.Fields[column])
		if !result.Found {
			continue
		}
		if column == models.ColContractTypes {
			job.ContractTypes = append([]string(nil), result.Values...)
			continue
		}
		job.Set(column, result.Value)
	}
	return job
}
