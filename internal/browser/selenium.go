package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimezsa/jobscrape/internal/fetch"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// seleniumDriver talks to a remote WebDriver. Tabs are browser windows,
// opened with window.open and addressed by window handle.
type seleniumDriver struct {
	wd selenium.WebDriver
}

// NewSelenium connects to the WebDriver at url and starts a Chrome session.
func NewSelenium(url string, headless bool, pageLoadTimeout time.Duration) (Driver, error) {
	args := []string{"--disable-gpu", "--no-sandbox", "--disable-dev-shm-usage"}
	if headless {
		args = append(args, "--headless=new")
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: args})

	wd, err := selenium.NewRemote(caps, url)
	if err != nil {
		return nil, fmt.Errorf("connect webdriver %s: %w", url, err)
	}
	if pageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(pageLoadTimeout); err != nil {
			_ = wd.Quit()
			return nil, fmt.Errorf("set page load timeout: %w", err)
		}
	}
	return &seleniumDriver{wd: wd}, nil
}

func (d *seleniumDriver) Current(context.Context) (string, error) {
	return d.wd.CurrentWindowHandle()
}

func (d *seleniumDriver) Open(context.Context) (string, error) {
	before, err := d.wd.WindowHandles()
	if err != nil {
		return "", err
	}
	if _, err := d.wd.ExecuteScript("window.open('about:blank');", nil); err != nil {
		return "", err
	}
	after, err := d.wd.WindowHandles()
	if err != nil {
		return "", err
	}

	known := make(map[string]struct{}, len(before))
	for _, handle := range before {
		known[handle] = struct{}{}
	}
	for i := len(after) - 1; i >= 0; i-- {
		if _, ok := known[after[i]]; !ok {
			return after[i], nil
		}
	}
	return "", fmt.Errorf("window.open created no window")
}

func (d *seleniumDriver) Activate(_ context.Context, handle string) error {
	return d.wd.SwitchWindow(handle)
}

func (d *seleniumDriver) Close(_ context.Context, handle string) error {
	if err := d.wd.SwitchWindow(handle); err != nil {
		return err
	}
	return d.wd.CloseWindow(handle)
}

func (d *seleniumDriver) Navigate(_ context.Context, url string) error {
	if err := d.wd.Get(url); err != nil {
		var serr *selenium.Error
		if errors.As(err, &serr) && serr.Err == "timeout" {
			return fetch.Timeout(url, err)
		}
		return err
	}
	return nil
}

func (d *seleniumDriver) Content(context.Context) (string, error) {
	return d.wd.PageSource()
}

func (d *seleniumDriver) Quit() error {
	return d.wd.Quit()
}
