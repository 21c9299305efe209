package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobscrape/internal/fetch"
)

// Fetcher adapts a Session to fetch.Fetcher. Listing pages load in the active
// tab; detail pages load in isolated tabs.
type Fetcher struct {
	session *Session
	timeout time.Duration
}

var _ fetch.Fetcher = (*Fetcher)(nil)

func NewFetcher(session *Session, timeout time.Duration) *Fetcher {
	return &Fetcher{session: session, timeout: timeout}
}

func (f *Fetcher) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := f.session.Primary(ctx, func(ctx context.Context, d Driver) error {
		var err error
		doc, err = f.load(ctx, d, target)
		return err
	})
	return doc, err
}

func (f *Fetcher) FetchIsolated(ctx context.Context, target string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := f.session.Isolated(ctx, func(ctx context.Context, d Driver) error {
		var err error
		doc, err = f.load(ctx, d, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) Close() error {
	return f.session.Quit()
}

func (f *Fetcher) load(ctx context.Context, d Driver, target string) (*goquery.Document, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := d.Navigate(ctx, target); err != nil {
		return nil, classify(target, err)
	}
	html, err := d.Content(ctx)
	if err != nil {
		return nil, classify(target, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

func classify(target string, err error) error {
	if errors.Is(err, fetch.ErrTimeout) {
		return err
	}
	if fetch.IsTimeout(err) {
		return fetch.Timeout(target, err)
	}
	return fmt.Errorf("load %s: %w", target, err)
}
