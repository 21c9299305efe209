package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version  VersionCmd  `cmd:"" help:"Print version."`
	Config   ConfigCmd   `cmd:"" help:"Manage configuration."`
	Scrape   ScrapeCmd   `cmd:"" help:"Scrape job listings from a site."`
	Sites    SitesCmd    `cmd:"" help:"List the site templates."`
	Show     ShowCmd     `cmd:"" help:"Print the jobs of a saved session file."`
	Validate ValidateCmd `cmd:"" help:"Check saved session files against the session schema."`
	History  HistoryCmd  `cmd:"" help:"Sessions stored in the database."`
	Seen     SeenCmd     `cmd:"" help:"Seen jobs utilities."`
	Proxies  ProxiesCmd  `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{}
}
