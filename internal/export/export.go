package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/jimezsa/jobscrape/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

// WriteJobs renders jobs for the terminal or for piping.
func WriteJobs(w io.Writer, jobs []models.Job, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		return WriteFlat(w, jobs)
	case FormatTSV:
		return writeTSV(w, jobs)
	case FormatMarkdown:
		return writeMarkdown(w, jobs)
	default:
		return writeTable(w, jobs, opts)
	}
}

func writeJSON(w io.Writer, jobs []models.Job) error {
	if jobs == nil {
		jobs = []models.Job{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

func writeTSV(w io.Writer, jobs []models.Job) error {
	columns := Columns(jobs)
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writer.Write(row(job.Fields(), columns)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, jobs []models.Job, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, job := range jobs {
		fmt.Fprintln(tw, strings.Join(tableRow(job, output, opts), "\t"))
	}
	return tw.Flush()
}

// markdownDetails are the optional lines printed under each markdown entry.
var markdownDetails = []struct {
	column string
	label  string
}{
	{models.ColContractTypes, "Contract"},
	{models.ColIndustry, "Industry"},
	{models.ColExperience, "Experience"},
	{models.ColSalary, "Salary"},
	{models.ColPostedDate, "Posted"},
	{models.ColDescriptionPreview, "Summary"},
}

func writeMarkdown(w io.Writer, jobs []models.Job) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, job := range jobs {
		fields := job.Fields()
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", orDash(job.Title), orDash(job.Company)),
			fmt.Sprintf("  Location: %s", orDash(job.Location)),
		}
		if url := safe(job.URL); url != "" {
			lines = append(lines, fmt.Sprintf("  URL: [Open listing](<%s>)", url))
		} else {
			lines = append(lines, "  URL: -")
		}
		for _, d := range markdownDetails {
			if value := safe(fields[d.column]); value != "" {
				lines = append(lines, fmt.Sprintf("  %s: %s", d.label, value))
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
			return err
		}
	}
	return nil
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func orDash(value string) string {
	if value = safe(value); value == "" {
		return "-"
	}
	return value
}

// tableColumns are the record columns shown in the terminal table; the URL is
// rendered last as a link.
var tableColumns = []string{models.ColTitle, models.ColCompany, models.ColLocation, models.ColPostedDate}

func tableHeader() []string {
	header := []string{"title", "company", "location", "posted"}
	return append(header, "url")
}

func tableRow(job models.Job, output *termenv.Output, opts WriteOptions) []string {
	fields := job.Fields()
	cells := make([]string, 0, len(tableColumns)+1)
	for _, column := range tableColumns {
		cells = append(cells, orDash(fields[column]))
	}
	return append(cells, linkCell(job.URL, output, opts))
}

func linkCell(raw string, output *termenv.Output, opts WriteOptions) string {
	url := safe(raw)
	if url == "" {
		return "-"
	}
	label := url
	if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
		label = shortURLLabel(url)
	}
	if opts.ColorEnabled {
		label = ui.ColorizeLink(output, true, label)
	}
	if opts.Hyperlinks {
		label = hyperlink(url, label)
	}
	return label
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
