package playground

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	playgroundplugins "github.com/ternarybob/prowl/internal/plugins/playground"
	"github.com/ternarybob/prowl/internal/services/events"
	"github.com/ternarybob/prowl/internal/services/jobs"
	"github.com/ternarybob/prowl/internal/services/pipeline"
	"github.com/ternarybob/prowl/internal/services/queue"
)

// failingPlugin always errors from Execute.
type failingPlugin struct{}

func (f *failingPlugin) Name() string  { return "boom" }
func (f *failingPlugin) Enabled() bool { return true }

func (f *failingPlugin) Execute(ctx context.Context, pc *interfaces.PluginContext) (interface{}, error) {
	return nil, errors.New("boom")
}

func newTestEngine(t *testing.T, start bool) (*Engine, *queue.Service, *events.Service) {
	t.Helper()
	logger := common.GetLogger()
	store := jobs.NewStore(logger)
	bus := events.NewService(logger)
	q := queue.NewService(0, logger)
	pipe := pipeline.NewPipeline(bus, logger)

	registry := pipeline.NewRegistry(logger)
	require.NoError(t, registry.Register(playgroundplugins.NewReversePlugin()))
	require.NoError(t, registry.Register(playgroundplugins.NewUppercasePlugin()))
	require.NoError(t, registry.Register(playgroundplugins.NewWordCountPlugin()))
	require.NoError(t, registry.Register(&failingPlugin{}))

	engine := NewEngine(store, bus, q, pipe, registry, logger)
	q.RegisterEngine(models.JobKindPlayground, engine)
	if start {
		q.Start()
		t.Cleanup(q.Stop)
	}
	return engine, q, bus
}

func playgroundConfig(input interface{}, plugins ...string) *models.PlaygroundConfig {
	return &models.PlaygroundConfig{
		Input:   input,
		Plugins: plugins,
	}
}

func TestCreateAndWaitSinglePlugin(t *testing.T) {
	engine, _, _ := newTestEngine(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := engine.CreateAndWait(ctx, playgroundConfig("hello", "reverse"))
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Progress.Status)
	assert.Equal(t, []string{"reverse"}, job.Progress.CompletedPlugins)
	require.NotNil(t, job.Result)
	require.Len(t, job.Result.Metrics, 1)

	metrics, ok := job.Result.Metrics[0]["reverse"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 5, metrics["inputLength"])
	assert.Equal(t, 5, metrics["outputLength"])
	assert.NotEmpty(t, metrics["processedAt"])
	assert.Contains(t, metrics, "processingTimeMs")

	summary, ok := job.Result.Summary["reverse"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, summary["totalProcessed"])
}

func TestCreateJobAsyncReturnsImmediately(t *testing.T) {
	engine, _, _ := newTestEngine(t, true)

	config := playgroundConfig("hello", "reverse")
	config.Async = true

	start := time.Now()
	job, err := engine.CreateJob(config)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Contains(t, []models.JobStatus{models.JobStatusQueued, models.JobStatusRunning}, job.Progress.Status)
	assert.False(t, job.Progress.StartTime.IsZero(), "start time is stamped at creation")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := engine.WaitTerminal(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, final.Progress.Status)
}

func TestPluginFailureIsolated(t *testing.T) {
	engine, _, bus := newTestEngine(t, true)

	var mu sync.Mutex
	var pluginErrors []string
	bus.Subscribe(interfaces.EventPluginError, func(event interfaces.Event) {
		mu.Lock()
		pluginErrors = append(pluginErrors, event.PluginName)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := engine.CreateAndWait(ctx, playgroundConfig("hello", "boom", "reverse"))
	require.NoError(t, err)

	// The job completes despite the failing plugin; the failure is
	// recorded on the result.
	assert.Equal(t, models.JobStatusCompleted, job.Progress.Status)
	require.NotNil(t, job.Result.Error)
	assert.Equal(t, "boom", job.Result.Error.Message)
	assert.Equal(t, "boom", job.Result.Error.Plugin)
	assert.False(t, job.Result.Error.Timestamp.IsZero())
	assert.Equal(t, []string{"reverse"}, job.Progress.CompletedPlugins)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"boom"}, pluginErrors)
}

func TestPluginsFilter(t *testing.T) {
	engine, _, _ := newTestEngine(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := engine.CreateAndWait(ctx, playgroundConfig("hello world", "wordcount"))
	require.NoError(t, err)

	assert.Equal(t, []string{"wordcount"}, job.Progress.CompletedPlugins)
	require.Len(t, job.Result.Metrics, 1)
	assert.Contains(t, job.Result.Metrics[0], "wordcount")
	assert.NotContains(t, job.Result.Metrics[0], "reverse")
}

func TestEmptyPluginsRunsAll(t *testing.T) {
	engine, _, _ := newTestEngine(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := engine.CreateAndWait(ctx, playgroundConfig("hello"))
	require.NoError(t, err)

	// All enabled plugins run; the failing one is recorded, not completed.
	assert.ElementsMatch(t, []string{"reverse", "uppercase", "wordcount"}, job.Progress.CompletedPlugins)
	assert.NotNil(t, job.Result.Error)
}

func TestCreateJobRequiresInput(t *testing.T) {
	engine, _, _ := newTestEngine(t, false)

	_, err := engine.CreateJob(&models.PlaygroundConfig{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLifecycleEvents(t *testing.T) {
	engine, _, bus := newTestEngine(t, true)

	var mu sync.Mutex
	counts := map[interfaces.EventType]int{}
	bus.SubscribeAll(func(event interfaces.Event) {
		mu.Lock()
		counts[event.Type]++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := engine.CreateAndWait(ctx, playgroundConfig("hello", "reverse"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts[interfaces.EventJobStart])
	assert.Equal(t, 1, counts[interfaces.EventJobComplete])
	assert.Equal(t, 1, counts[interfaces.EventPluginStart])
	assert.Equal(t, 1, counts[interfaces.EventPluginComplete])
}

func TestEventsCarryPerPluginProgress(t *testing.T) {
	engine, _, bus := newTestEngine(t, true)

	type snapshot struct {
		current   string
		completed []string
	}
	var mu sync.Mutex
	starts := map[string]snapshot{}
	completes := map[string]snapshot{}
	bus.Subscribe(interfaces.EventPluginStart, func(event interfaces.Event) {
		mu.Lock()
		starts[event.PluginName] = snapshot{event.Job.Progress.CurrentPlugin, event.Job.Progress.CompletedPlugins}
		mu.Unlock()
	})
	bus.Subscribe(interfaces.EventPluginComplete, func(event interfaces.Event) {
		mu.Lock()
		completes[event.PluginName] = snapshot{event.Job.Progress.CurrentPlugin, event.Job.Progress.CompletedPlugins}
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := engine.CreateAndWait(ctx, playgroundConfig("hello", "reverse", "uppercase"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "reverse", starts["reverse"].current)
	assert.Empty(t, starts["reverse"].completed)
	assert.Equal(t, []string{"reverse"}, completes["reverse"].completed)
	assert.Equal(t, "uppercase", starts["uppercase"].current)
	assert.Equal(t, []string{"reverse"}, starts["uppercase"].completed)
	assert.Equal(t, []string{"reverse", "uppercase"}, completes["uppercase"].completed)
}

func TestStartJobTwiceFails(t *testing.T) {
	engine, _, _ := newTestEngine(t, false)

	job, err := engine.CreateJob(playgroundConfig("hello", "reverse"))
	require.NoError(t, err)

	_, err = engine.StartJob(context.Background(), job.ID)
	require.NoError(t, err)

	_, err = engine.StartJob(context.Background(), job.ID)
	assert.Error(t, err)
}
