package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sitemapFetchTimeout = 10 * time.Second

// sitemapDoc covers both <urlset> and <sitemapindex> documents; only
// the <loc> elements matter.
type sitemapDoc struct {
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// FetchSitemap downloads a sitemap and returns the page URLs it lists.
// Nested sitemap indexes are followed one level deep.
func FetchSitemap(ctx context.Context, sitemapURL, userAgent string) ([]string, error) {
	client := &http.Client{Timeout: sitemapFetchTimeout}

	doc, err := fetchSitemapDoc(ctx, client, sitemapURL, userAgent)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(doc.URLs))
	for _, entry := range doc.URLs {
		if entry.Loc != "" {
			urls = append(urls, entry.Loc)
		}
	}

	for _, nested := range doc.Sitemaps {
		if nested.Loc == "" {
			continue
		}
		child, err := fetchSitemapDoc(ctx, client, nested.Loc, userAgent)
		if err != nil {
			continue
		}
		for _, entry := range child.URLs {
			if entry.Loc != "" {
				urls = append(urls, entry.Loc)
			}
		}
	}

	return urls, nil
}

func fetchSitemapDoc(ctx context.Context, client *http.Client, sitemapURL, userAgent string) (*sitemapDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	return &doc, nil
}
