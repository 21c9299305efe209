package cmd

import (
	"fmt"

	"github.com/jimezsa/jobscrape/internal/seen"
)

// Seen history files hold either a saved session document or a bare array
// of jobs, so the output of scrape can be diffed directly.
type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Write jobs of A missing from B to JSON."`
	Update SeenUpdateCmd `cmd:"" help:"Merge new jobs into a seen history file."`
}

type SeenDiffCmd struct {
	New   string `name:"new" required:"" help:"Session or jobs JSON file with fresh jobs (A)."`
	Seen  string `name:"seen" required:"" help:"Seen history JSON file (B). Missing file is treated as empty."`
	Out   string `name:"out" required:"" help:"Output path for unseen jobs JSON (C)."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Seen history JSON file. Missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Session or jobs JSON file to merge into the history."`
	Out   string `name:"out" help:"Output path (default: overwrite --seen)."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	fresh, err := seen.ReadJobs(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	history, err := seen.ReadJobsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseen, stats := seen.Diff(fresh, history)
	if err := seen.WriteJobs(c.Out, unseen); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}
	if !c.Stats {
		return nil
	}
	_, err = fmt.Fprintf(ctx.Out, "total_new=%d total_seen=%d invalid_skipped=%d unseen_emitted=%d\n",
		stats.TotalNew, stats.TotalSeen, stats.InvalidSkipped(), stats.Unseen)
	return err
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	history, err := seen.ReadJobsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	input, err := seen.ReadJobs(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	merged, stats := seen.Merge(history, input)
	out := firstNonEmpty(c.Out, c.Seen)
	if err := seen.WriteJobs(out, merged); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	if !c.Stats {
		return nil
	}
	_, err = fmt.Fprintf(ctx.Out, "total_seen=%d total_input=%d invalid_skipped=%d added=%d total_out=%d\n",
		stats.TotalSeen, stats.TotalInput, stats.InvalidSkipped(), stats.Added, stats.TotalOut)
	return err
}
