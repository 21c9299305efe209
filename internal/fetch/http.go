package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobscrape/internal/network"
)

// Doer sends one HTTP request.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

var _ Doer = (*network.Client)(nil)

// HTTP fetches documents with a browser-fingerprinted HTTP client. Every
// request is independent, so FetchIsolated is the same as Fetch.
type HTTP struct {
	client  Doer
	timeout time.Duration
	headers map[string]string
}

// NewHTTP returns an HTTP fetcher. timeout bounds each request; headers are
// sent with every request.
func NewHTTP(client Doer, timeout time.Duration, headers map[string]string) *HTTP {
	return &HTTP{client: client, timeout: timeout, headers: headers}
}

func (h *HTTP) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	applyHeaders(req, h.headers)

	resp, err := h.client.Do(req)
	if err != nil {
		if IsTimeout(err) {
			return nil, Timeout(target, err)
		}
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		if IsTimeout(err) {
			return nil, Timeout(target, err)
		}
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

func (h *HTTP) FetchIsolated(ctx context.Context, target string) (*goquery.Document, error) {
	return h.Fetch(ctx, target)
}

func (h *HTTP) Close() error {
	return nil
}

func applyHeaders(req *fhttp.Request, headers map[string]string) {
	req.Header.Set("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}
