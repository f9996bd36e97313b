package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// receiver captures webhook POSTs and can fail the first n attempts.
type receiver struct {
	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	failures int
	server   *httptest.Server
}

func newReceiver(failures int) *receiver {
	r := &receiver{failures: failures}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.headers = append(r.headers, req.Header.Clone())
		fail := len(r.bodies) <= r.failures
		r.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return r
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func (r *receiver) payload(t *testing.T, i int) map[string]interface{} {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Greater(t, len(r.bodies), i)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(r.bodies[i], &payload))
	return payload
}

func newTestEmitter() (*Emitter, *[]time.Duration) {
	emitter := NewEmitter(5*time.Second, common.GetLogger())
	var slept []time.Duration
	var mu sync.Mutex
	emitter.sleep = func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}
	return emitter, &slept
}

func playgroundJob(id, url string, on []string) *models.Job {
	return &models.Job{
		ID:   id,
		Kind: models.JobKindPlayground,
		Config: models.JobConfig{
			Playground: &models.PlaygroundConfig{
				Input:   "hello",
				Plugins: []string{"reverse"},
				Webhook: &models.WebhookConfig{URL: url, On: on},
			},
		},
		Progress: models.Progress{
			Status:    models.JobStatusRunning,
			StartTime: time.Now(),
		},
	}
}

func TestDeliverStartedPayload(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)

	emitter.handle(interfaces.Event{Type: interfaces.EventJobStart, JobID: job.ID, Job: job})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	payload := recv.payload(t, 0)
	assert.Equal(t, "started", payload["status"])
	assert.Equal(t, "job-1", payload["jobId"])
	assert.NotEmpty(t, payload["timestamp"])

	config, ok := payload["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"reverse"}, config["plugins"])
}

func TestEventFilter(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, []string{"completed", "failed"})

	emitter.handle(interfaces.Event{Type: interfaces.EventJobStart, JobID: job.ID, Job: job})
	emitter.handle(interfaces.Event{Type: interfaces.EventProgress, JobID: job.ID, Job: job})
	emitter.handle(interfaces.Event{Type: interfaces.EventJobComplete, JobID: job.ID, Job: job})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	assert.Equal(t, "completed", recv.payload(t, 0)["status"])
}

func TestUnmappedEventTypesAreDropped(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)

	emitter.handle(interfaces.Event{Type: interfaces.EventPluginStart, JobID: job.ID, Job: job})
	emitter.handle(interfaces.Event{Type: interfaces.EventPluginError, JobID: job.ID, Job: job})
	emitter.Wait()

	assert.Equal(t, 0, recv.count())
}

func TestPluginCompleteDeliveredForPlaygroundOnly(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()

	crawlJob := &models.Job{
		ID:   "job-crawl",
		Kind: models.JobKindCrawl,
		Config: models.JobConfig{
			Crawl: &models.CrawlConfig{
				URL:     "https://example.com",
				Webhook: &models.WebhookConfig{URL: recv.server.URL},
			},
		},
		Progress: models.Progress{Status: models.JobStatusRunning, StartTime: time.Now()},
	}

	// Crawl progress is carried by page_complete; per-plugin completions
	// inside a page evaluation must not fan out.
	emitter.handle(interfaces.Event{
		Type:       interfaces.EventPluginComplete,
		JobID:      crawlJob.ID,
		Job:        crawlJob,
		PluginName: "wordcount",
	})
	emitter.Wait()
	assert.Equal(t, 0, recv.count())

	playJob := playgroundJob("job-play", recv.server.URL, nil)
	emitter.handle(interfaces.Event{
		Type:       interfaces.EventPluginComplete,
		JobID:      playJob.ID,
		Job:        playJob,
		PluginName: "reverse",
		Metrics:    map[string]interface{}{"inputLength": 5},
	})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	payload := recv.payload(t, 0)
	assert.Equal(t, "progress", payload["status"])
	assert.Equal(t, "reverse", payload["pluginName"])
}

func TestNoWebhookConfigured(t *testing.T) {
	emitter, _ := newTestEmitter()
	job := &models.Job{
		ID:     "job-1",
		Kind:   models.JobKindPlayground,
		Config: models.JobConfig{Playground: &models.PlaygroundConfig{Input: "x"}},
	}

	assert.NotPanics(t, func() {
		emitter.handle(interfaces.Event{Type: interfaces.EventJobStart, JobID: job.ID, Job: job})
		emitter.Wait()
	})
}

func TestRetryWithBackoff(t *testing.T) {
	recv := newReceiver(2)
	defer recv.server.Close()

	emitter, slept := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)
	job.Config.Playground.Webhook.Retries = 3

	emitter.handle(interfaces.Event{Type: interfaces.EventJobComplete, JobID: job.ID, Job: job})
	emitter.Wait()

	// 500, 500, 200: three attempts with 1s then 2s between them.
	assert.Equal(t, 3, recv.count())
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestRetriesPreservePayloadBytes(t *testing.T) {
	recv := newReceiver(1)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)

	emitter.handle(interfaces.Event{Type: interfaces.EventJobComplete, JobID: job.ID, Job: job})
	emitter.Wait()

	require.Equal(t, 2, recv.count())
	assert.Equal(t, recv.bodies[0], recv.bodies[1])
}

func TestExhaustedRetriesAreDropped(t *testing.T) {
	recv := newReceiver(10)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)

	emitter.handle(interfaces.Event{Type: interfaces.EventJobComplete, JobID: job.ID, Job: job})
	emitter.Wait()

	// Default budget is 3 attempts.
	assert.Equal(t, 3, recv.count())
}

func TestCustomHeaders(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)
	job.Config.Playground.Webhook.Headers = map[string]string{"X-Api-Key": "secret"}

	emitter.handle(interfaces.Event{Type: interfaces.EventJobStart, JobID: job.ID, Job: job})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	assert.Equal(t, "application/json", recv.headers[0].Get("Content-Type"))
	assert.Equal(t, "secret", recv.headers[0].Get("X-Api-Key"))
}

func TestFailedPayloadCarriesError(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := playgroundJob("job-1", recv.server.URL, nil)
	job.Progress.Status = models.JobStatusFailed

	emitter.handle(interfaces.Event{
		Type:  interfaces.EventJobError,
		JobID: job.ID,
		Job:   job,
		Err:   errors.New("driver init failed"),
	})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	payload := recv.payload(t, 0)
	assert.Equal(t, "failed", payload["status"])
	assert.Equal(t, "driver init failed", payload["error"])
	assert.Contains(t, payload, "progress")
}

func TestCrawlProgressPayload(t *testing.T) {
	recv := newReceiver(0)
	defer recv.server.Close()

	emitter, _ := newTestEmitter()
	job := &models.Job{
		ID:   "job-1",
		Kind: models.JobKindCrawl,
		Config: models.JobConfig{
			Crawl: &models.CrawlConfig{
				URL:     "https://example.com",
				Webhook: &models.WebhookConfig{URL: recv.server.URL},
			},
		},
		Progress: models.Progress{
			Status:        models.JobStatusRunning,
			StartTime:     time.Now(),
			PagesAnalyzed: 7,
			TotalPages:    20,
			CurrentURL:    "https://example.com/about",
			UniqueURLs:    12,
		},
	}

	emitter.handle(interfaces.Event{
		Type:  interfaces.EventPageComplete,
		JobID: job.ID,
		Job:   job,
		Page:  &models.PageAnalysis{URL: "https://example.com/about", Title: "About", WordCount: 340},
	})
	emitter.Wait()

	require.Equal(t, 1, recv.count())
	payload := recv.payload(t, 0)
	assert.Equal(t, "progress", payload["status"])

	progress, ok := payload["progress"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), progress["pagesAnalyzed"])
	assert.Equal(t, float64(20), progress["totalPages"])
	assert.Equal(t, "https://example.com/about", progress["currentUrl"])

	currentPage, ok := payload["currentPage"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "About", currentPage["title"])
	assert.Equal(t, float64(340), currentPage["wordCount"])
}
