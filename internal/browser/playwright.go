package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jimezsa/jobscrape/internal/fetch"
	"github.com/playwright-community/playwright-go"
)

type playwrightTab struct {
	context playwright.BrowserContext
	page    playwright.Page
}

// playwrightDriver gives every isolated tab its own browser context so
// cookies and storage never leak between detail pages.
type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	tabs    map[string]playwrightTab
	active  string
	next    int
}

const primaryPage = "page-0"

// NewPlaywright starts Chromium through playwright.
func NewPlaywright(headless bool) (Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	d := &playwrightDriver{pw: pw, browser: browser, tabs: map[string]playwrightTab{}}
	tab, err := d.newTab()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}
	d.tabs[primaryPage] = tab
	d.active = primaryPage
	d.next = 1
	return d, nil
}

func (d *playwrightDriver) newTab() (playwrightTab, error) {
	bctx, err := d.browser.NewContext()
	if err != nil {
		return playwrightTab{}, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return playwrightTab{}, fmt.Errorf("new page: %w", err)
	}
	return playwrightTab{context: bctx, page: page}, nil
}

func (d *playwrightDriver) Current(context.Context) (string, error) {
	return d.active, nil
}

func (d *playwrightDriver) Open(context.Context) (string, error) {
	tab, err := d.newTab()
	if err != nil {
		return "", err
	}
	handle := "page-" + strconv.Itoa(d.next)
	d.next++
	d.tabs[handle] = tab
	return handle, nil
}

func (d *playwrightDriver) Activate(_ context.Context, handle string) error {
	tab, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("unknown page %q", handle)
	}
	if err := tab.page.BringToFront(); err != nil {
		return err
	}
	d.active = handle
	return nil
}

func (d *playwrightDriver) Close(_ context.Context, handle string) error {
	if handle == primaryPage {
		return fmt.Errorf("refusing to close the primary page")
	}
	tab, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("unknown page %q", handle)
	}
	delete(d.tabs, handle)
	if d.active == handle {
		d.active = primaryPage
	}
	return errors.Join(tab.page.Close(), tab.context.Close())
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = playwright.Float(float64(time.Until(deadline).Milliseconds()))
	}
	if _, err := d.tabs[d.active].page.Goto(url, opts); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fetch.Timeout(url, err)
		}
		return err
	}
	return nil
}

func (d *playwrightDriver) Content(context.Context) (string, error) {
	return d.tabs[d.active].page.Content()
}

func (d *playwrightDriver) Quit() error {
	var errs []error
	for _, tab := range d.tabs {
		errs = append(errs, tab.context.Close())
	}
	errs = append(errs, d.browser.Close(), d.pw.Stop())
	return errors.Join(errs...)
}
