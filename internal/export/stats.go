package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jimezsa/jobscrape/internal/models"
)

// TopN bounds the location and company rankings.
const TopN = 10

const unknown = "Unknown"

// Count is one row of a ranking.
type Count struct {
	Name  string
	Count int
}

// Summary aggregates a session's records.
type Summary struct {
	Total         int
	ContractTypes []Count
	Locations     []Count
	Companies     []Count
}

// Summarize counts contract types, locations and companies. Records without
// a location or company are counted as "Unknown".
func Summarize(jobs []models.Job) Summary {
	contracts := map[string]int{}
	locations := map[string]int{}
	companies := map[string]int{}
	for _, job := range jobs {
		for _, contract := range job.ContractTypes {
			contracts[contract]++
		}
		locations[orUnknown(job.Location)]++
		companies[orUnknown(job.Company)]++
	}
	return Summary{
		Total:         len(jobs),
		ContractTypes: ranked(contracts, 0),
		Locations:     ranked(locations, TopN),
		Companies:     ranked(companies, TopN),
	}
}

func orUnknown(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return unknown
	}
	return value
}

// ranked sorts by count, highest first, then by name. limit <= 0 keeps all.
func ranked(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WriteSummary prints the statistics block shown after a run.
func WriteSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(&b, "\n%s\nSCRAPING STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total jobs scraped: %d\n", s.Total)
	section := func(title string, rows []Count) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, row := range rows {
			fmt.Fprintf(&b, "  %s: %d\n", row.Name, row.Count)
		}
	}
	section("Jobs by contract type", s.ContractTypes)
	section(fmt.Sprintf("Top %d locations", TopN), s.Locations)
	section(fmt.Sprintf("Top %d companies", TopN), s.Companies)
	_, err := io.WriteString(w, b.String())
	return err
}
