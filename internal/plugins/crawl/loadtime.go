package crawl

import (
	"context"
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// LoadTimePlugin records per-page load time and summarizes min/max/avg
// across the crawl.
type LoadTimePlugin struct{}

func NewLoadTimePlugin() *LoadTimePlugin {
	return &LoadTimePlugin{}
}

func (p *LoadTimePlugin) Name() string  { return "loadtime" }
func (p *LoadTimePlugin) Enabled() bool { return true }

func (p *LoadTimePlugin) Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration) (interface{}, error) {
	ms := loadTime.Milliseconds()
	page.LoadTimeMs = ms

	return map[string]interface{}{
		"loadTimeMs": ms,
	}, nil
}

func (p *LoadTimePlugin) Summarize(metrics []interface{}) (interface{}, error) {
	if len(metrics) == 0 {
		return map[string]interface{}{"pages": 0}, nil
	}

	var total, min, max int64
	min = -1
	for _, entry := range metrics {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		ms, ok := m["loadTimeMs"].(int64)
		if !ok {
			continue
		}
		total += ms
		if min < 0 || ms < min {
			min = ms
		}
		if ms > max {
			max = ms
		}
	}

	return map[string]interface{}{
		"pages":   len(metrics),
		"totalMs": total,
		"minMs":   min,
		"maxMs":   max,
		"avgMs":   total / int64(len(metrics)),
	}, nil
}
