package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/Path", "https://example.com/Path"},
		{"https://example.com:443/page", "https://example.com/page"},
		{"http://example.com:80/page", "http://example.com/page"},
		{"http://example.com:8080/page", "http://example.com:8080/page"},
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/page?a=1&b=2", "https://example.com/page?a=1&b=2"},
		{"https://example.com/page/", "https://example.com/page/"},
	}

	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizeURLRejectsBadInput(t *testing.T) {
	for _, in := range []string{"ftp://example.com/file", "not a url", "/relative/only"} {
		_, err := NormalizeURL(in)
		assert.Error(t, err, in)
	}
}

func TestResolveURL(t *testing.T) {
	got, err := ResolveURL("https://example.com/docs/intro", "../about#team")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/about", got)

	got, err = ResolveURL("https://example.com/", "https://example.com/Contact")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Contact", got)
}

func TestFrontierDeduplicates(t *testing.T) {
	f := NewFrontier("example.com", 3, 100, nil)

	assert.True(t, f.Add("https://example.com/page", 0))
	assert.False(t, f.Add("https://example.com/page", 1))
	assert.False(t, f.Add("https://EXAMPLE.com/page#frag", 1))
	assert.Equal(t, 1, f.Admitted())
}

func TestFrontierRejectsOffHost(t *testing.T) {
	f := NewFrontier("example.com", 3, 100, nil)

	assert.False(t, f.Add("https://other.com/page", 0))
	assert.Equal(t, 0, f.Admitted())
}

func TestFrontierDepthAndPageBudget(t *testing.T) {
	f := NewFrontier("example.com", 1, 2, nil)

	assert.True(t, f.Add("https://example.com/", 0))
	assert.True(t, f.Add("https://example.com/a", 1))
	assert.False(t, f.Add("https://example.com/b", 2), "past depth budget")
	assert.False(t, f.Add("https://example.com/c", 1), "past page budget")
}

func TestFrontierFilterCountsSkipped(t *testing.T) {
	f := NewFrontier("example.com", 3, 100, func(u string) bool {
		return !strings.Contains(u, "/admin")
	})

	assert.True(t, f.Add("https://example.com/", 0))
	assert.False(t, f.Add("https://example.com/admin/users", 1))
	assert.Equal(t, 1, f.SkippedURLs())
}

func TestFrontierNextDrains(t *testing.T) {
	f := NewFrontier("example.com", 3, 100, nil)
	require.True(t, f.Add("https://example.com/", 0))

	u, depth, ok := f.Next()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", u)
	assert.Equal(t, 0, depth)

	// While the page is in flight it may still discover links.
	require.True(t, f.Add("https://example.com/a", 1))
	f.Done()

	u, _, ok = f.Next()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", u)
	f.Done()

	_, _, ok = f.Next()
	assert.False(t, ok)
}

func TestFrontierCloseWakesWaiters(t *testing.T) {
	f := NewFrontier("example.com", 3, 100, nil)
	require.True(t, f.Add("https://example.com/", 0))

	_, _, ok := f.Next()
	require.True(t, ok)

	// A second worker blocks in Next; Close must release it.
	released := make(chan bool, 1)
	go func() {
		_, _, ok := f.Next()
		released <- ok
	}()

	f.Close()
	assert.False(t, <-released)
}
