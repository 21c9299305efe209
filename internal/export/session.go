package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jimezsa/jobscrape/internal/models"
)

// Document is the structured output of a session.
type Document struct {
	ScrapedAt    string              `json:"scraped_at"`
	SearchParams models.SearchParams `json:"search_params"`
	TotalJobs    int                 `json:"total_jobs"`
	Jobs         []models.Job        `json:"jobs"`
}

// NewDocument snapshots session.
func NewDocument(session *models.Session) Document {
	jobs := session.Jobs
	if jobs == nil {
		jobs = []models.Job{}
	}
	return Document{
		ScrapedAt:    session.ScrapedAt.Format(time.RFC3339),
		SearchParams: session.Params,
		TotalJobs:    len(jobs),
		Jobs:         jobs,
	}
}

// WriteDocument writes session as indented JSON. Non-ASCII text is kept as
// is.
func WriteDocument(w io.Writer, session *models.Session) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(session))
}

// ReadDocument loads a document written by WriteDocument. The schema is
// checked first so a foreign file fails with a useful message.
func ReadDocument(path string) (Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, nil, err
	}
	if err := ValidateDocument(data); err != nil {
		return Document{}, data, fmt.Errorf("%s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, data, fmt.Errorf("%s: %w", path, err)
	}
	return doc, data, nil
}

// Files are the paths written for one session.
type Files struct {
	CSV  string
	JSON string
}

// WriteFiles writes <stem>.csv and <stem>.json. Each file is written to a
// temporary sibling first and renamed into place.
func WriteFiles(stem string, session *models.Session) (Files, error) {
	files := Files{CSV: stem + ".csv", JSON: stem + ".json"}
	if dir := filepath.Dir(stem); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Files{}, err
		}
	}

	var flat bytes.Buffer
	if err := WriteFlat(&flat, session.Jobs); err != nil {
		return Files{}, err
	}
	if err := writeAtomic(files.CSV, flat.Bytes()); err != nil {
		return Files{}, err
	}

	var doc bytes.Buffer
	if err := WriteDocument(&doc, session); err != nil {
		return Files{}, err
	}
	if err := writeAtomic(files.JSON, doc.Bytes()); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
