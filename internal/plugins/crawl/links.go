package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// LinksPlugin records the outbound links of each page, split into
// internal and external by host.
type LinksPlugin struct{}

func NewLinksPlugin() *LinksPlugin {
	return &LinksPlugin{}
}

func (p *LinksPlugin) Name() string  { return "links" }
func (p *LinksPlugin) Enabled() bool { return true }

func (p *LinksPlugin) Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration) (interface{}, error) {
	page.Links = append([]string(nil), snapshot.Links...)

	pageHost := ""
	if u, err := url.Parse(snapshot.URL); err == nil {
		pageHost = strings.ToLower(u.Hostname())
	}

	internal := 0
	external := 0
	for _, link := range snapshot.Links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if host == "" || host == pageHost {
			internal++
		} else {
			external++
		}
	}

	return map[string]interface{}{
		"total":    len(snapshot.Links),
		"internal": internal,
		"external": external,
	}, nil
}

func (p *LinksPlugin) Summarize(metrics []interface{}) (interface{}, error) {
	total := 0
	for _, entry := range metrics {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if n, ok := m["total"].(int); ok {
			total += n
		}
	}
	return map[string]interface{}{
		"pages":      len(metrics),
		"totalLinks": total,
	}, nil
}
