package playground

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// ReversePlugin reverses a string input and reports basic throughput
// metrics. It is the canonical demo plugin for the playground surface.
type ReversePlugin struct {
	processed int64
}

func NewReversePlugin() *ReversePlugin {
	return &ReversePlugin{}
}

func (p *ReversePlugin) Name() string  { return "reverse" }
func (p *ReversePlugin) Enabled() bool { return true }

func (p *ReversePlugin) Execute(ctx context.Context, pc *interfaces.PluginContext) (interface{}, error) {
	start := time.Now()

	input, ok := pc.Input.(string)
	if !ok {
		return nil, fmt.Errorf("reverse expects a string input, got %T", pc.Input)
	}

	runes := []rune(input)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	output := string(runes)
	pc.Output = output

	atomic.AddInt64(&p.processed, 1)

	return map[string]interface{}{
		"processedAt":      time.Now().UTC().Format(time.RFC3339),
		"inputLength":      len(runes),
		"outputLength":     len([]rune(output)),
		"processingTimeMs": time.Since(start).Milliseconds(),
	}, nil
}

func (p *ReversePlugin) Summarize(metrics []interface{}) (interface{}, error) {
	return map[string]interface{}{
		"totalProcessed": len(metrics),
	}, nil
}
