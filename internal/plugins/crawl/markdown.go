package crawl

import (
	"context"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// MarkdownPlugin converts the rendered HTML of each page to markdown
// and attaches it to the page metrics, so crawl results double as a
// content export.
type MarkdownPlugin struct {
	converter *md.Converter
}

func NewMarkdownPlugin() *MarkdownPlugin {
	return &MarkdownPlugin{
		converter: md.NewConverter("", true, nil),
	}
}

func (p *MarkdownPlugin) Name() string  { return "markdown" }
func (p *MarkdownPlugin) Enabled() bool { return true }

func (p *MarkdownPlugin) Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration) (interface{}, error) {
	markdown, err := p.converter.ConvertString(snapshot.HTML)
	if err != nil {
		return nil, err
	}
	markdown = strings.TrimSpace(markdown)

	return map[string]interface{}{
		"markdown": markdown,
		"length":   len(markdown),
	}, nil
}
