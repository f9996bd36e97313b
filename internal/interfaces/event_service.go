package interfaces

import (
	"github.com/ternarybob/prowl/internal/models"
)

// EventType represents the closed set of engine events
type EventType string

const (
	EventJobStart       EventType = "job_start"
	EventJobComplete    EventType = "job_complete"
	EventJobError       EventType = "job_error"
	EventPageStart      EventType = "page_start"
	EventPageComplete   EventType = "page_complete"
	EventPageError      EventType = "page_error"
	EventPluginStart    EventType = "plugin_start"
	EventPluginComplete EventType = "plugin_complete"
	EventPluginError    EventType = "plugin_error"
	EventProgress       EventType = "progress"
)

// Event is a tagged variant: Type selects which optional fields are set.
// JobID and Job are present on every event.
type Event struct {
	Type  EventType            `json:"type"`
	JobID string               `json:"job_id"`
	Job   *models.Job          `json:"job,omitempty"`
	URL   string               `json:"url,omitempty"`
	Page  *models.PageAnalysis `json:"page,omitempty"`

	PluginName string      `json:"plugin_name,omitempty"`
	Metrics    interface{} `json:"metrics,omitempty"`

	Err error `json:"-"`
}

// ErrorMessage returns the event error as a string, or "".
func (e Event) ErrorMessage() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// EventHandler is a function that handles events. Panics inside a
// handler are contained at the bus boundary and never reach the
// publisher or other subscribers.
type EventHandler func(event Event)

// EventService is the in-process pub/sub bus between the engines and
// their subscribers (webhook emitter, websocket push, loggers).
// Fanout is synchronous within the publisher's goroutine; a subscriber
// that needs to block must hand off internally.
type EventService interface {
	// Subscribe registers a handler for one event type.
	Subscribe(eventType EventType, handler EventHandler)

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler)

	// Publish delivers the event to all matching subscribers.
	Publish(event Event)

	// Close drops all subscriptions.
	Close() error
}
