package crawl

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// WordCountPlugin counts words in the page's visible text.
type WordCountPlugin struct{}

func NewWordCountPlugin() *WordCountPlugin {
	return &WordCountPlugin{}
}

func (p *WordCountPlugin) Name() string  { return "wordcount" }
func (p *WordCountPlugin) Enabled() bool { return true }

func (p *WordCountPlugin) Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration) (interface{}, error) {
	words := len(strings.Fields(snapshot.Text))
	page.WordCount = words

	return map[string]interface{}{
		"words":      words,
		"characters": len(snapshot.Text),
	}, nil
}

func (p *WordCountPlugin) Summarize(metrics []interface{}) (interface{}, error) {
	total := 0
	for _, entry := range metrics {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if words, ok := m["words"].(int); ok {
			total += words
		}
	}
	return map[string]interface{}{
		"pages":      len(metrics),
		"totalWords": total,
	}, nil
}
