// Package browser drives a real browser for sites that need script
// rendering. Detail pages open in a tab of their own so the listing tab keeps
// its state.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Driver is the small window-handling surface every backend provides. Handles
// are opaque strings; Navigate and Content act on the active handle.
type Driver interface {
	Current(ctx context.Context) (string, error)
	Open(ctx context.Context) (string, error)
	Activate(ctx context.Context, handle string) error
	Close(ctx context.Context, handle string) error
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	Quit() error
}

// Session serializes access to one Driver.
type Session struct {
	driver Driver
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewSession(driver Driver, logger zerolog.Logger) *Session {
	return &Session{driver: driver, logger: logger}
}

// Primary runs fn against the active tab.
func (s *Session) Primary(ctx context.Context, fn func(ctx context.Context, d Driver) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, s.driver)
}

// Isolated opens a fresh tab, makes it active and runs fn in it. The tab is
// closed and the previously active tab restored on every exit path, panics
// included.
func (s *Session) Isolated(ctx context.Context, fn func(ctx context.Context, d Driver) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, err := s.driver.Current(ctx)
	if err != nil {
		return fmt.Errorf("current tab: %w", err)
	}
	handle, err := s.driver.Open(ctx)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}

	defer func() {
		cleanup := context.WithoutCancel(ctx)
		var errs []error
		if cerr := s.driver.Close(cleanup, handle); cerr != nil {
			errs = append(errs, fmt.Errorf("close tab: %w", cerr))
		}
		if aerr := s.driver.Activate(cleanup, original); aerr != nil {
			errs = append(errs, fmt.Errorf("restore tab: %w", aerr))
		}
		if len(errs) == 0 {
			return
		}
		cleanupErr := errors.Join(errs...)
		s.logger.Warn().Err(cleanupErr).Str("tab", handle).Msg("tab cleanup failed")
		if err == nil {
			err = cleanupErr
		}
	}()

	if err := s.driver.Activate(ctx, handle); err != nil {
		return fmt.Errorf("switch tab: %w", err)
	}
	return fn(ctx, s.driver)
}

// Quit shuts the browser down.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.Quit()
}
