package playground

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/services/pipeline"
)

func newContext(input interface{}) *interfaces.PluginContext {
	return &interfaces.PluginContext{
		JobID:     "job-1",
		Input:     input,
		StartTime: time.Now(),
		Storage:   pipeline.NewMemoryStorage(),
	}
}

func TestReverse(t *testing.T) {
	plugin := NewReversePlugin()
	pc := newContext("hello")

	metrics, err := plugin.Execute(context.Background(), pc)
	require.NoError(t, err)

	assert.Equal(t, "olleh", pc.Output)

	m := metrics.(map[string]interface{})
	assert.Equal(t, 5, m["inputLength"])
	assert.Equal(t, 5, m["outputLength"])
	assert.NotEmpty(t, m["processedAt"])
	assert.Contains(t, m, "processingTimeMs")
}

func TestReverseUnicode(t *testing.T) {
	plugin := NewReversePlugin()
	pc := newContext("héllo")

	_, err := plugin.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "olléh", pc.Output)
}

func TestReverseRejectsNonString(t *testing.T) {
	plugin := NewReversePlugin()
	pc := newContext(42)

	_, err := plugin.Execute(context.Background(), pc)
	assert.Error(t, err)
}

func TestReverseSummarize(t *testing.T) {
	plugin := NewReversePlugin()

	summary, err := plugin.Summarize([]interface{}{map[string]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"totalProcessed": 1}, summary)
}

func TestUppercaseChainsFromPreviousOutput(t *testing.T) {
	reverse := NewReversePlugin()
	upper := NewUppercasePlugin()
	pc := newContext("hello")

	_, err := reverse.Execute(context.Background(), pc)
	require.NoError(t, err)
	_, err = upper.Execute(context.Background(), pc)
	require.NoError(t, err)

	assert.Equal(t, "OLLEH", pc.Output)
}

func TestUppercaseFromInput(t *testing.T) {
	plugin := NewUppercasePlugin()
	pc := newContext("hello")

	_, err := plugin.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", pc.Output)
}

func TestWordCount(t *testing.T) {
	plugin := NewWordCountPlugin()
	pc := newContext("the quick brown fox")

	metrics, err := plugin.Execute(context.Background(), pc)
	require.NoError(t, err)

	m := metrics.(map[string]interface{})
	assert.Equal(t, 4, m["words"])
	assert.Equal(t, 19, m["characters"])
}

func TestWordCountAccumulatesInStorage(t *testing.T) {
	plugin := NewWordCountPlugin()
	storage := pipeline.NewMemoryStorage()

	first := newContext("one two")
	first.Storage = storage
	_, err := plugin.Execute(context.Background(), first)
	require.NoError(t, err)

	second := newContext("three four five")
	second.Storage = storage
	metrics, err := plugin.Execute(context.Background(), second)
	require.NoError(t, err)

	m := metrics.(map[string]interface{})
	assert.Equal(t, 5, m["totalWords"])
}

func TestWordCountSummarize(t *testing.T) {
	plugin := NewWordCountPlugin()

	summary, err := plugin.Summarize([]interface{}{
		map[string]interface{}{"words": 4},
		map[string]interface{}{"words": 6},
	})
	require.NoError(t, err)

	s := summary.(map[string]interface{})
	assert.Equal(t, 2, s["totalProcessed"])
	assert.Equal(t, 10, s["totalWords"])
}
