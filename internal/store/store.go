// Package store persists sessions and their records in SQLite as they are
// scraped, so an interrupted run loses nothing already assembled.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobscrape/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is a SQLite database of sessions and jobs.
type Store struct {
	db *sql.DB
}

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID        uuid.UUID
	Site      string
	ScrapedAt time.Time
	Params    models.SearchParams
	TotalJobs int
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		scraped_at TEXT NOT NULL,
		params TEXT NOT NULL,
		total_jobs INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS jobs (
		job_id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		url TEXT,
		title TEXT,
		company TEXT,
		data TEXT NOT NULL,
		stored_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS jobs_session ON jobs(session_id, job_id);
	CREATE INDEX IF NOT EXISTS jobs_url ON jobs(url);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession records the session before any job is stored.
func (s *Store) BeginSession(ctx context.Context, session *models.Session) error {
	params, err := json.Marshal(session.Params)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, site, scraped_at, params, total_jobs) VALUES (?, ?, ?, ?, 0)`,
		session.ID.String(), session.Params.Site, formatTime(session.ScrapedAt), string(params))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession stores the final job count.
func (s *Store) FinishSession(ctx context.Context, session *models.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET total_jobs = ? WHERE session_id = ?`,
		len(session.Jobs), session.ID.String())
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Sink writes the jobs of one session in the order they arrive.
type Sink struct {
	store   *Store
	session uuid.UUID
}

// Sink returns a sink bound to session. BeginSession must have been called.
func (s *Store) Sink(session *models.Session) *Sink {
	return &Sink{store: s, session: session.ID}
}

// Write inserts job immediately.
func (k *Sink) Write(ctx context.Context, job models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = k.store.db.ExecContext(ctx,
		`INSERT INTO jobs (session_id, url, title, company, data, stored_at) VALUES (?, ?, ?, ?, ?, ?)`,
		k.session.String(), nullable(job.URL), nullable(job.Title), nullable(job.Company), string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// SeenURLs returns every job URL stored for site.
func (s *Store) SeenURLs(ctx context.Context, site string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT j.url FROM jobs j
		JOIN sessions s ON s.session_id = j.session_id
		WHERE s.site = ? AND j.url IS NOT NULL`, site)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Sessions lists stored sessions, newest first. limit <= 0 lists all.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	query := `SELECT session_id, site, scraped_at, params, total_jobs FROM sessions ORDER BY scraped_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadSession rebuilds a session with its jobs in listing order.
func (s *Store) LoadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, site, scraped_at, params, total_jobs FROM sessions WHERE session_id = ?`, id.String())
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM jobs WHERE session_id = ? ORDER BY job_id`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	session := &models.Session{ID: info.ID, ScrapedAt: info.ScrapedAt, Params: info.Params, Jobs: []models.Job{}}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var job models.Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		session.Append(job)
	}
	return session, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionInfo, error) {
	var (
		info               SessionInfo
		id, scraped, param string
	)
	if err := row.Scan(&id, &info.Site, &scraped, &param, &info.TotalJobs); err != nil {
		return SessionInfo{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	info.ID = parsed
	info.ScrapedAt = parseTime(scraped)
	if err := json.Unmarshal([]byte(param), &info.Params); err != nil {
		return SessionInfo{}, fmt.Errorf("decode params: %w", err)
	}
	return info, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
