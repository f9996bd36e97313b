package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/prowl/internal/models"
)

// NormalizeURL canonicalizes a URL so the frontier can deduplicate:
// scheme and host are lowercased, default ports are stripped and the
// fragment is dropped. Query strings and trailing slashes are
// significant and kept.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	u.Fragment = ""

	return u.String(), nil
}

// ResolveURL resolves a possibly-relative link against its page URL and
// normalizes the result.
func ResolveURL(base, link string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	linkURL, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", err
	}
	return NormalizeURL(baseURL.ResolveReference(linkURL).String())
}

type frontierEntry struct {
	url   string
	depth int
}

// Frontier is the deduplicating URL work queue of one crawl. Workers
// pull entries with Next, which blocks while the queue is empty but
// pages are still in flight (in-flight pages may discover more links).
// Once the queue is empty and nothing is in flight, the crawl is over.
type Frontier struct {
	pending  []frontierEntry
	seen     map[string]bool
	inFlight int
	admitted int
	skipped  int
	maxPages int
	maxDepth int
	host     string
	filter   models.URLFilter
	closed   bool
	mu       sync.Mutex
	cond     *sync.Cond
}

// NewFrontier creates a frontier scoped to the seed's host.
// filter may be nil.
func NewFrontier(host string, maxDepth, maxPages int, filter models.URLFilter) *Frontier {
	f := &Frontier{
		seen:     make(map[string]bool),
		maxDepth: maxDepth,
		maxPages: maxPages,
		host:     strings.ToLower(host),
		filter:   filter,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add offers a URL at the given depth. Returns true when the URL was
// admitted to the queue; duplicates, off-host URLs, filtered URLs and
// URLs past the depth or page budget are rejected.
func (f *Frontier) Add(rawURL string, depth int) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	u, _ := url.Parse(normalized)
	if strings.ToLower(u.Hostname()) != f.host {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.seen[normalized] {
		return false
	}
	f.seen[normalized] = true

	if depth > f.maxDepth || f.admitted >= f.maxPages {
		return false
	}
	if f.filter != nil && !f.filter(normalized) {
		f.skipped++
		return false
	}

	f.pending = append(f.pending, frontierEntry{url: normalized, depth: depth})
	f.admitted++
	f.cond.Broadcast()
	return true
}

// Next blocks until an entry is available, returning ok=false once the
// crawl is drained (no pending entries and no pages in flight) or the
// frontier is closed.
func (f *Frontier) Next() (string, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return "", 0, false
		}
		if len(f.pending) > 0 {
			entry := f.pending[0]
			f.pending = f.pending[1:]
			f.inFlight++
			return entry.url, entry.depth, true
		}
		if f.inFlight == 0 {
			return "", 0, false
		}
		f.cond.Wait()
	}
}

// Done marks one in-flight page finished. Must be called exactly once
// per successful Next.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if f.inFlight == 0 && len(f.pending) == 0 {
		f.cond.Broadcast()
	}
}

// Close aborts the crawl: blocked workers wake and drain.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Skip reclassifies one admitted URL as skipped. Used when a page is
// rejected after admission, such as a robots.txt disallow discovered at
// fetch time.
func (f *Frontier) Skip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admitted--
	f.skipped++
}

// Drop removes one admitted URL from the admitted count without
// counting it as skipped. Used for pages that failed to load; the
// engine accounts for those separately as failed URLs.
func (f *Frontier) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admitted--
}

// Stats returns the admitted and skipped counts as one consistent
// snapshot.
func (f *Frontier) Stats() (admitted, skipped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admitted, f.skipped
}

// SkippedURLs returns the number of URLs rejected by the filter or
// reclassified via Skip.
func (f *Frontier) SkippedURLs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skipped
}

// Admitted returns the number of URLs currently counted as admitted.
func (f *Frontier) Admitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admitted
}
