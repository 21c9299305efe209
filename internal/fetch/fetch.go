// Package fetch loads pages as parsed documents, over plain HTTP or through
// a browser backend.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrTimeout marks failures caused by a request running out of time. They are
// the only failures worth retrying.
var ErrTimeout = errors.New("request timed out")

// Fetcher returns the parsed document at a URL. FetchIsolated loads the page
// in a context of its own and leaves the primary context exactly as it was.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*goquery.Document, error)
	FetchIsolated(ctx context.Context, target string) (*goquery.Document, error)
	Close() error
}

// StatusError is returned for HTTP error responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d", e.StatusCode)
}

// IsTimeout reports whether err is a timeout-class failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// Some transports only report timeouts in the message. Wrapping layers
	// add the request URL to theirs, so only the innermost error is read.
	msg := strings.ToLower(innermost(err).Error())
	for _, phrase := range timeoutPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

var timeoutPhrases = []string{
	"client.timeout exceeded",
	"i/o timeout",
	"tls handshake timeout",
	"timeout awaiting",
	"deadline exceeded",
	"timed out",
}

func innermost(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 || errs[0] == nil {
				return err
			}
			err = errs[0]
		default:
			return err
		}
	}
}

// Timeout wraps err so that errors.Is(err, ErrTimeout) holds.
func Timeout(target string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTimeout, target, err)
}
