package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/prowl/internal/common"
)

func TestRobotsAllowedAndBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Prowl-Crawler/1.0", common.GetLogger())
	ctx := context.Background()

	assert.True(t, checker.Allowed(ctx, server.URL+"/public/page"))
	assert.False(t, checker.Allowed(ctx, server.URL+"/private/secrets"))
}

func TestRobotsFetchedOncePerHost(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Prowl-Crawler/1.0", common.GetLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		checker.Allowed(ctx, fmt.Sprintf("%s/page-%d", server.URL, i))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestRobotsMissingFileAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Prowl-Crawler/1.0", common.GetLogger())
	assert.True(t, checker.Allowed(context.Background(), server.URL+"/private/page"))
}

func TestRobotsUnreachableHostAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := NewRobotsChecker("Prowl-Crawler/1.0", common.GetLogger())
	assert.True(t, checker.Allowed(context.Background(), url+"/anything"))
}

func TestRobotsPerAgentRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: Prowl-Crawler\nDisallow: /blocked\n\nUser-agent: *\nDisallow:\n")
	}))
	defer server.Close()

	ctx := context.Background()

	prowl := NewRobotsChecker("Prowl-Crawler/1.0", common.GetLogger())
	assert.False(t, prowl.Allowed(ctx, server.URL+"/blocked/page"))

	other := NewRobotsChecker("OtherBot/1.0", common.GetLogger())
	assert.True(t, other.Allowed(ctx, server.URL+"/blocked/page"))
}
