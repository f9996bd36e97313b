package playground

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// WordCountPlugin counts words and characters in a string input and
// keeps a running total in its run-scoped storage.
type WordCountPlugin struct{}

func NewWordCountPlugin() *WordCountPlugin {
	return &WordCountPlugin{}
}

func (p *WordCountPlugin) Name() string  { return "wordcount" }
func (p *WordCountPlugin) Enabled() bool { return true }

func (p *WordCountPlugin) Execute(ctx context.Context, pc *interfaces.PluginContext) (interface{}, error) {
	input, ok := pc.Input.(string)
	if !ok {
		return nil, fmt.Errorf("wordcount expects a string input, got %T", pc.Input)
	}

	words := len(strings.Fields(input))

	total := words
	if pc.Storage != nil {
		if prev, ok := pc.Storage.Get("total_words"); ok {
			if n, ok := prev.(int); ok {
				total += n
			}
		}
		pc.Storage.Set("total_words", total)
	}

	return map[string]interface{}{
		"words":      words,
		"characters": len(input),
		"totalWords": total,
	}, nil
}

func (p *WordCountPlugin) Summarize(metrics []interface{}) (interface{}, error) {
	totalWords := 0
	for _, entry := range metrics {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if words, ok := m["words"].(int); ok {
			totalWords += words
		}
	}
	return map[string]interface{}{
		"totalProcessed": len(metrics),
		"totalWords":     totalWords,
	}, nil
}
