package export

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/jimezsa/jobscrape/internal/models"
)

// Columns returns the union of populated fields across jobs, sorted.
func Columns(jobs []models.Job) []string {
	set := map[string]struct{}{}
	for _, job := range jobs {
		for key := range job.Fields() {
			set[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for key := range set {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

func row(fields map[string]string, columns []string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = fields[column]
	}
	return out
}

// WriteFlat writes jobs as CSV with every value quoted and CRLF line
// endings. Absent fields are written as empty strings.
func WriteFlat(w io.Writer, jobs []models.Job) error {
	columns := Columns(jobs)
	bw := bufio.NewWriter(w)
	writeQuoted(bw, columns)
	for _, job := range jobs {
		writeQuoted(bw, row(job.Fields(), columns))
	}
	return bw.Flush()
}

func writeQuoted(w *bufio.Writer, values []string) {
	for i, value := range values {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(value, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString("\r\n")
}
