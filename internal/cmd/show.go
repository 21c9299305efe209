package cmd

import (
	"github.com/jimezsa/jobscrape/internal/export"
)

type ShowCmd struct {
	File   string `arg:"" help:"Session JSON file written by scrape." type:"existingfile"`
	Format string `help:"Output format: table, csv, json, md, tsv." enum:",table,csv,json,md,tsv" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"short"`
	Limit  int    `help:"Show at most N jobs."`
}

func (c *ShowCmd) Run(ctx *Context) error {
	doc, _, err := export.ReadDocument(c.File)
	if err != nil {
		return err
	}

	format, err := resolveFormat(ctx, c.Format)
	if err != nil {
		return err
	}

	jobs := doc.Jobs
	if c.Limit > 0 && len(jobs) > c.Limit {
		jobs = jobs[:c.Limit]
	}
	if format == export.FormatTable {
		ctx.UI.Headingf("%s: %d jobs scraped at %s", doc.SearchParams.Site, doc.TotalJobs, doc.ScrapedAt)
	}
	return export.WriteJobs(ctx.Out, jobs, format, writeOptions(ctx, c.Links))
}
