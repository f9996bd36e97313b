package interfaces

import (
	"context"
	"time"
)

// PageSnapshot is what the driver returns for a navigated page: timing,
// the rendered DOM and the links it discovered. Link extraction is the
// driver's job; the engine only normalizes and filters.
type PageSnapshot struct {
	URL        string
	StatusCode int
	Title      string
	HTML       string
	Text       string
	Links      []string
	LoadTime   time.Duration
}

// PageDriver is the external headless-browser contract consumed by the
// crawl engine. The concrete automation (chromedp) lives behind it; tests
// inject stubs.
type PageDriver interface {
	// Navigate opens the URL, waits for the page to settle and returns a
	// snapshot. The context carries the per-page timeout; a timeout or
	// navigation failure is returned as an error and counted as a failed
	// URL by the engine.
	Navigate(ctx context.Context, url string, headers map[string]string) (*PageSnapshot, error)

	// Shutdown releases browser resources.
	Shutdown() error
}
