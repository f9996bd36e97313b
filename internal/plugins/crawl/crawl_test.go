package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Example Page</title>
<meta name="description" content="A sample page for testing">
</head>
<body>
<h1>Welcome</h1>
<h2>Section One</h2>
<h2>Section Two</h2>
<p>Some body text with <a href="/about">a link</a>.</p>
</body>
</html>`

func sampleSnapshot() *interfaces.PageSnapshot {
	return &interfaces.PageSnapshot{
		URL:        "https://example.com/",
		StatusCode: 200,
		Title:      "Example Page",
		HTML:       sampleHTML,
		Text:       "Welcome Section One Section Two Some body text with a link.",
		Links: []string{
			"https://example.com/about",
			"https://example.com/contact",
			"https://other.com/page",
		},
		LoadTime: 120 * time.Millisecond,
	}
}

func TestLoadTime(t *testing.T) {
	plugin := NewLoadTimePlugin()
	page := &models.PageAnalysis{URL: "https://example.com/"}

	metrics, err := plugin.Evaluate(context.Background(), page, sampleSnapshot(), 120*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, int64(120), page.LoadTimeMs)
	m := metrics.(map[string]interface{})
	assert.Equal(t, int64(120), m["loadTimeMs"])
}

func TestLoadTimeSummarize(t *testing.T) {
	plugin := NewLoadTimePlugin()

	summary, err := plugin.Summarize([]interface{}{
		map[string]interface{}{"loadTimeMs": int64(100)},
		map[string]interface{}{"loadTimeMs": int64(300)},
	})
	require.NoError(t, err)

	s := summary.(map[string]interface{})
	assert.Equal(t, 2, s["pages"])
	assert.Equal(t, int64(100), s["minMs"])
	assert.Equal(t, int64(300), s["maxMs"])
	assert.Equal(t, int64(200), s["avgMs"])
}

func TestPageMeta(t *testing.T) {
	plugin := NewPageMetaPlugin()
	page := &models.PageAnalysis{URL: "https://example.com/"}

	metrics, err := plugin.Evaluate(context.Background(), page, sampleSnapshot(), 0)
	require.NoError(t, err)

	assert.Equal(t, "Example Page", page.Title)
	m := metrics.(map[string]interface{})
	assert.Equal(t, "Example Page", m["title"])
	assert.Equal(t, "A sample page for testing", m["description"])

	headings := m["headings"].(map[string]int)
	assert.Equal(t, 1, headings["h1"])
	assert.Equal(t, 2, headings["h2"])
}

func TestWordCount(t *testing.T) {
	plugin := NewWordCountPlugin()
	page := &models.PageAnalysis{URL: "https://example.com/"}

	metrics, err := plugin.Evaluate(context.Background(), page, sampleSnapshot(), 0)
	require.NoError(t, err)

	m := metrics.(map[string]interface{})
	assert.Equal(t, 11, m["words"])
	assert.Equal(t, 11, page.WordCount)
}

func TestLinks(t *testing.T) {
	plugin := NewLinksPlugin()
	page := &models.PageAnalysis{URL: "https://example.com/"}

	metrics, err := plugin.Evaluate(context.Background(), page, sampleSnapshot(), 0)
	require.NoError(t, err)

	assert.Len(t, page.Links, 3)
	m := metrics.(map[string]interface{})
	assert.Equal(t, 3, m["total"])
	assert.Equal(t, 2, m["internal"])
	assert.Equal(t, 1, m["external"])
}

func TestMarkdown(t *testing.T) {
	plugin := NewMarkdownPlugin()
	page := &models.PageAnalysis{URL: "https://example.com/"}

	metrics, err := plugin.Evaluate(context.Background(), page, sampleSnapshot(), 0)
	require.NoError(t, err)

	m := metrics.(map[string]interface{})
	markdown := m["markdown"].(string)
	assert.Contains(t, markdown, "# Welcome")
	assert.Contains(t, markdown, "[a link](/about)")
	assert.Greater(t, m["length"].(int), 0)
}
