package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// Emitter subscribes to the event bus and POSTs filtered payloads to
// each job's webhook URL. Deliveries are fire-and-forget goroutines so
// a slow receiver never blocks the engine; retries back off 1s, 2s, 4s
// between attempts. Delivery failure is logged and dropped, never
// surfaced to the job.
type Emitter struct {
	client *http.Client
	sleep  func(d time.Duration)
	wg     sync.WaitGroup
	logger arbor.ILogger
}

// NewEmitter creates an emitter with the given outbound request timeout
func NewEmitter(requestTimeout time.Duration, logger arbor.ILogger) *Emitter {
	return &Emitter{
		client: &http.Client{Timeout: requestTimeout},
		sleep:  time.Sleep,
		logger: logger,
	}
}

// Subscribe attaches the emitter to the bus
func (e *Emitter) Subscribe(events interfaces.EventService) {
	events.SubscribeAll(e.handle)
}

// Wait blocks until all in-flight deliveries finish. Used by shutdown
// and tests.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) handle(event interfaces.Event) {
	status := statusFor(event)
	if status == "" || event.Job == nil {
		return
	}

	config := event.Job.Config.Webhook()
	if config == nil || config.URL == "" {
		return
	}
	if !config.Wants(status) {
		return
	}

	body, err := json.Marshal(buildPayload(status, event))
	if err != nil {
		e.logger.Error().
			Str("job_id", event.JobID).
			Str("status", status).
			Err(err).
			Msg("Failed to marshal webhook payload")
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(config, status, event.JobID, body)
	}()
}

// deliver POSTs the payload with retries. The marshaled body is reused
// across attempts so retries are byte-identical.
func (e *Emitter) deliver(config *models.WebhookConfig, status, jobID string, body []byte) {
	maxAttempts := config.MaxAttempts()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			e.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}

		if err := e.post(config, body); err != nil {
			lastErr = err
			e.logger.Debug().
				Str("job_id", jobID).
				Str("status", status).
				Int("attempt", attempt+1).
				Err(err).
				Msg("Webhook attempt failed")
			continue
		}

		e.logger.Info().
			Str("job_id", jobID).
			Str("status", status).
			Str("url", config.URL).
			Int("attempt", attempt+1).
			Msg("Webhook delivered")
		return
	}

	e.logger.Warn().
		Str("job_id", jobID).
		Str("status", status).
		Str("url", config.URL).
		Int("attempts", maxAttempts).
		Err(lastErr).
		Msg("Webhook delivery exhausted, dropping event")
}

func (e *Emitter) post(config *models.WebhookConfig, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
