package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// chromeDriver keeps one chromedp context per tab. Cancelling a tab context
// closes the tab.
type chromeDriver struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabs          map[string]chromeTab
	active        string
	next          int
}

const primaryTab = "tab-0"

// NewChromedp launches a local Chrome through chromedp.
func NewChromedp(headless bool) (Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser and its first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeDriver{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          map[string]chromeTab{primaryTab: {ctx: browserCtx, cancel: browserCancel}},
		active:        primaryTab,
		next:          1,
	}, nil
}

func (d *chromeDriver) Current(context.Context) (string, error) {
	return d.active, nil
}

func (d *chromeDriver) Open(ctx context.Context) (string, error) {
	tabCtx, cancel := chromedp.NewContext(d.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return "", err
	}
	handle := "tab-" + strconv.Itoa(d.next)
	d.next++
	d.tabs[handle] = chromeTab{ctx: tabCtx, cancel: cancel}
	return handle, nil
}

func (d *chromeDriver) Activate(ctx context.Context, handle string) error {
	tab, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("unknown tab %q", handle)
	}
	runCtx, cancel := bind(ctx, tab.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, page.BringToFront()); err != nil {
		return err
	}
	d.active = handle
	return nil
}

func (d *chromeDriver) Close(_ context.Context, handle string) error {
	if handle == primaryTab {
		return fmt.Errorf("refusing to close the primary tab")
	}
	tab, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("unknown tab %q", handle)
	}
	tab.cancel()
	delete(d.tabs, handle)
	if d.active == handle {
		d.active = primaryTab
	}
	return nil
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := bind(ctx, d.tabs[d.active].ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (d *chromeDriver) Content(ctx context.Context) (string, error) {
	runCtx, cancel := bind(ctx, d.tabs[d.active].ctx)
	defer cancel()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *chromeDriver) Quit() error {
	for handle, tab := range d.tabs {
		if handle != primaryTab {
			tab.cancel()
		}
	}
	d.browserCancel()
	d.allocCancel()
	return nil
}

// bind derives a context from the tab's chromedp context that also ends when
// ctx does.
func bind(ctx context.Context, tabCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		parentCancel := cancel
		cancel = func() {
			cancelDeadline()
			parentCancel()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
