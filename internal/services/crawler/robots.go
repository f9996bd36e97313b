package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

const robotsFetchTimeout = 5 * time.Second

// RobotsChecker fetches and caches robots.txt per host. Fetch failures
// and malformed files fail open: the crawl proceeds as if no robots.txt
// existed.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	cache     map[string]*robotstxt.RobotsData
	mu        sync.Mutex
	logger    arbor.ILogger
}

// NewRobotsChecker creates a checker identifying as userAgent
func NewRobotsChecker(userAgent string, logger arbor.ILogger) *RobotsChecker {
	return &RobotsChecker{
		client:    &http.Client{Timeout: robotsFetchTimeout},
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
		logger:    logger,
	}
}

// Allowed reports whether the URL may be fetched under the host's
// robots.txt rules.
func (r *RobotsChecker) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return true
	}

	data := r.dataFor(ctx, u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, r.userAgent)
}

func (r *RobotsChecker) dataFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	if data, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return data
	}
	r.mu.Unlock()

	data := r.fetch(ctx, key+"/robots.txt")

	r.mu.Lock()
	r.cache[key] = data
	r.mu.Unlock()
	return data
}

// fetch returns nil (allow all) on any failure
func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Str("url", robotsURL).Err(err).Msg("robots.txt fetch failed, allowing all")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug().
			Str("url", robotsURL).
			Err(fmt.Errorf("status %d", resp.StatusCode)).
			Msg("robots.txt not available, allowing all")
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		r.logger.Debug().Str("url", robotsURL).Err(err).Msg("robots.txt unparsable, allowing all")
		return nil
	}
	return data
}
