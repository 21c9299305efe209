package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobscrape/internal/config"
	"github.com/jimezsa/jobscrape/internal/export"
	"github.com/jimezsa/jobscrape/internal/store"
)

type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List stored sessions, newest first."`
	Export HistoryExportCmd `cmd:"" help:"Write a stored session to <stem>.csv and <stem>.json."`
}

type HistoryListCmd struct {
	DB    string `name:"db" help:"SQLite database (default from config)."`
	Limit int    `help:"Show at most N sessions." default:"20"`
}

type HistoryExportCmd struct {
	Session string `arg:"" help:"Session ID as printed by history list."`
	DB      string `name:"db" help:"SQLite database (default from config)."`
	Output  string `short:"o" help:"Output file stem (default <site>_<session>)."`
}

type sessionRow struct {
	ID        string `json:"session_id"`
	Site      string `json:"site"`
	ScrapedAt string `json:"scraped_at"`
	Keywords  string `json:"keywords,omitempty"`
	TotalJobs int    `json:"total_jobs"`
}

func openHistory(cfg config.Config, flag string) (*store.Store, error) {
	path := firstNonEmpty(flag, cfg.Database)
	if path == "" {
		var err error
		if path, err = config.DatabasePath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func (c *HistoryListCmd) Run(ctx *Context) error {
	st, err := openHistory(ctx.Config, c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.Sessions(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	rows := make([]sessionRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, sessionRow{
			ID:        info.ID.String(),
			Site:      info.Site,
			ScrapedAt: info.ScrapedAt.Format(time.RFC3339),
			Keywords:  info.Params.Keywords,
			TotalJobs: info.TotalJobs,
		})
	}

	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(rows) == 0 {
		ctx.UI.Warnf("No stored sessions.")
		return nil
	}
	if ctx.PlainText {
		for _, row := range rows {
			fmt.Fprintln(ctx.Out, strings.Join([]string{row.ID, row.Site, row.ScrapedAt, row.Keywords, fmt.Sprint(row.TotalJobs)}, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "session\tsite\tscraped_at\tkeywords\tjobs")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", row.ID, row.Site, row.ScrapedAt, orDash(row.Keywords), row.TotalJobs)
	}
	return tw.Flush()
}

func (c *HistoryExportCmd) Run(ctx *Context) error {
	id, err := uuid.Parse(strings.TrimSpace(c.Session))
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", c.Session, err)
	}

	st, err := openHistory(ctx.Config, c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := st.LoadSession(context.Background(), id)
	if err != nil {
		return err
	}
	if len(session.Jobs) == 0 {
		ctx.UI.Warnf("Session %s has no jobs; nothing written.", id)
		return nil
	}

	stem := firstNonEmpty(c.Output, fmt.Sprintf("%s_%s", session.Params.Site, id.String()[:8]))
	files, err := export.WriteFiles(stem, session)
	if err != nil {
		return err
	}
	ctx.UI.Successf("Saved %d jobs to %s and %s", len(session.Jobs), files.CSV, files.JSON)
	return nil
}
