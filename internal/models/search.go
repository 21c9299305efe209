package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchParams captures the inputs of one scrape run. They are fixed once the
// session starts.
type SearchParams struct {
	Site         string   `json:"site" validate:"required"`
	Keywords     string   `json:"keywords"`
	Categories   []string `json:"categories,omitempty"`
	Location     string   `json:"location"`
	ContractType string   `json:"contract_type"`
	Pages        int      `json:"pages" validate:"gte=1,lte=100"`
}

// Session is one scrape run: its parameters, start time and the records
// collected in listing order.
type Session struct {
	ID        uuid.UUID    `json:"-"`
	ScrapedAt time.Time    `json:"scraped_at"`
	Params    SearchParams `json:"search_params"`
	Jobs      []Job        `json:"jobs"`
}

// NewSession starts a session stamped with the current time.
func NewSession(params SearchParams) *Session {
	return &Session{
		ID:        uuid.New(),
		ScrapedAt: time.Now(),
		Params:    params,
		Jobs:      []Job{},
	}
}

// Append adds a record to the session.
func (s *Session) Append(job Job) {
	s.Jobs = append(s.Jobs, job)
}
