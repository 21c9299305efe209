package browser

import (
	"fmt"
	"time"
)

// Backend names accepted by New.
const (
	BackendChromedp   = "chromedp"
	BackendPlaywright = "playwright"
	BackendSelenium   = "selenium"
)

// Options configures a browser backend.
type Options struct {
	Headless     bool
	WebDriverURL string
	Timeout      time.Duration
}

// New starts the named backend. A failure here means no page can be fetched
// and the run must not start.
func New(backend string, opts Options) (Driver, error) {
	switch backend {
	case BackendChromedp:
		return NewChromedp(opts.Headless)
	case BackendPlaywright:
		return NewPlaywright(opts.Headless)
	case BackendSelenium:
		return NewSelenium(opts.WebDriverURL, opts.Headless, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown browser backend %q", backend)
	}
}
