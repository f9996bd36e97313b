package crawl

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// PageMetaPlugin extracts title, meta description and heading structure
// from the rendered HTML.
type PageMetaPlugin struct{}

func NewPageMetaPlugin() *PageMetaPlugin {
	return &PageMetaPlugin{}
}

func (p *PageMetaPlugin) Name() string  { return "pagemeta" }
func (p *PageMetaPlugin) Enabled() bool { return true }

func (p *PageMetaPlugin) Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration) (interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot.HTML))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		page.Title = title
	}

	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	headings := map[string]int{}
	for _, tag := range []string{"h1", "h2", "h3"} {
		if count := doc.Find(tag).Length(); count > 0 {
			headings[tag] = count
		}
	}

	return map[string]interface{}{
		"title":       title,
		"description": strings.TrimSpace(description),
		"headings":    headings,
	}, nil
}
