package models

import "time"

// ScraperConfig contains runtime options shared by the scrape pipeline.
type ScraperConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
	ArticleDelay time.Duration
	PageDelay    time.Duration
	PageRetries  int
	Workers      int
	SkipSeen     bool
}
