package events

import (
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// Service implements EventService with a synchronous pub/sub fanout.
// Delivery happens on the publisher's goroutine; each handler call is
// wrapped so a panicking subscriber cannot break the publisher or its
// siblings. Subscribers that would block (webhook delivery) hand off to
// their own goroutines.
type Service struct {
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	all         []interfaces.EventHandler
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) {
	if handler == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
}

// SubscribeAll registers a handler for every event type
func (s *Service) SubscribeAll(handler interfaces.EventHandler) {
	if handler == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = append(s.all, handler)
}

// Publish delivers the event to all matching subscribers synchronously
func (s *Service) Publish(event interfaces.Event) {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[event.Type])+len(s.all))
	handlers = append(handlers, s.subscribers[event.Type]...)
	handlers = append(handlers, s.all...)
	s.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		s.invoke(handler, event)
	}
}

// invoke calls one handler with panic containment
func (s *Service) invoke(handler interfaces.EventHandler, event interfaces.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("event_type", string(event.Type)).
				Str("job_id", event.JobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Event handler panicked")
		}
	}()

	handler(event)
}

// Close drops all subscriptions
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.all = nil
	s.logger.Info().Msg("Event service closed")

	return nil
}
