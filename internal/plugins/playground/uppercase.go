package playground

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// UppercasePlugin upper-cases a string input. If a previous plugin set
// an output, it transforms that instead, so plugins chain naturally.
type UppercasePlugin struct{}

func NewUppercasePlugin() *UppercasePlugin {
	return &UppercasePlugin{}
}

func (p *UppercasePlugin) Name() string  { return "uppercase" }
func (p *UppercasePlugin) Enabled() bool { return true }

func (p *UppercasePlugin) Execute(ctx context.Context, pc *interfaces.PluginContext) (interface{}, error) {
	start := time.Now()

	source := pc.Input
	if pc.Output != nil {
		source = pc.Output
	}

	input, ok := source.(string)
	if !ok {
		return nil, fmt.Errorf("uppercase expects a string input, got %T", source)
	}

	output := strings.ToUpper(input)
	pc.Output = output

	return map[string]interface{}{
		"processedAt":      time.Now().UTC().Format(time.RFC3339),
		"inputLength":      len(input),
		"outputLength":     len(output),
		"processingTimeMs": time.Since(start).Milliseconds(),
	}, nil
}

func (p *UppercasePlugin) Summarize(metrics []interface{}) (interface{}, error) {
	return map[string]interface{}{
		"totalProcessed": len(metrics),
	}, nil
}
