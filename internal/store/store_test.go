package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err, "should open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(site string, at time.Time) *models.Session {
	session := models.NewSession(models.SearchParams{Site: site, Categories: []string{"24"}, Pages: 4})
	session.ScrapedAt = at
	return session
}

func TestSinkStoresJobsInOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	session := newSession("keejob", time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.BeginSession(ctx, session))

	sink := s.Sink(session)
	jobs := []models.Job{
		{Title: "Developpeur Go", URL: "https://www.keejob.com/offres-emploi/1/", ContractTypes: []string{"CDI"}},
		{Title: "Analyste", Company: "Acme"},
		{Title: "DevOps", URL: "https://www.keejob.com/offres-emploi/3/"},
	}
	for _, job := range jobs {
		require.NoError(t, sink.Write(ctx, job))
		session.Append(job)
	}
	require.NoError(t, s.FinishSession(ctx, session))

	loaded, err := s.LoadSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs, loaded.Jobs)
	assert.Equal(t, session.Params, loaded.Params)
	assert.True(t, session.ScrapedAt.Equal(loaded.ScrapedAt))

	infos, err := s.Sessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 3, infos[0].TotalJobs)
	assert.Equal(t, "keejob", infos[0].Site)
}

func TestSeenURLsIsPerSite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	keejob := newSession("keejob", time.Now())
	naukrigulf := newSession("naukrigulf", time.Now())
	require.NoError(t, s.BeginSession(ctx, keejob))
	require.NoError(t, s.BeginSession(ctx, naukrigulf))
	require.NoError(t, s.Sink(keejob).Write(ctx, models.Job{URL: "https://www.keejob.com/offres-emploi/1/"}))
	require.NoError(t, s.Sink(keejob).Write(ctx, models.Job{Title: "no url"}))
	require.NoError(t, s.Sink(naukrigulf).Write(ctx, models.Job{URL: "https://www.naukrigulf.com/job-1"}))

	urls, err := s.SeenURLs(ctx, "keejob")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.keejob.com/offres-emploi/1/"}, urls)
}

func TestSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	older := newSession("keejob", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	newer := newSession("keejob", time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.BeginSession(ctx, older))
	require.NoError(t, s.BeginSession(ctx, newer))

	infos, err := s.Sessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, newer.ID, infos[0].ID)
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.LoadSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.FinishSession(ctx, newSession("keejob", time.Now())), ErrSessionNotFound)
}
