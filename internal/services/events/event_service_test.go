package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/interfaces"
)

func newTestService() *Service {
	return NewService(common.GetLogger())
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	svc := newTestService()

	var received []interfaces.Event
	svc.Subscribe(interfaces.EventJobStart, func(event interfaces.Event) {
		received = append(received, event)
	})

	svc.Publish(interfaces.Event{Type: interfaces.EventJobStart, JobID: "job-1"})

	require.Len(t, received, 1)
	assert.Equal(t, "job-1", received[0].JobID)
	assert.Equal(t, interfaces.EventJobStart, received[0].Type)
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	svc := newTestService()

	called := false
	svc.Subscribe(interfaces.EventJobComplete, func(event interfaces.Event) {
		called = true
	})

	svc.Publish(interfaces.Event{Type: interfaces.EventJobStart, JobID: "job-1"})

	assert.False(t, called)
}

func TestPublishFanout(t *testing.T) {
	svc := newTestService()

	count := 0
	for i := 0; i < 3; i++ {
		svc.Subscribe(interfaces.EventPageComplete, func(event interfaces.Event) {
			count++
		})
	}

	svc.Publish(interfaces.Event{Type: interfaces.EventPageComplete, JobID: "job-1"})

	assert.Equal(t, 3, count)
}

func TestSubscribeAllReceivesEveryType(t *testing.T) {
	svc := newTestService()

	var seen []interfaces.EventType
	svc.SubscribeAll(func(event interfaces.Event) {
		seen = append(seen, event.Type)
	})

	svc.Publish(interfaces.Event{Type: interfaces.EventJobStart})
	svc.Publish(interfaces.Event{Type: interfaces.EventPageError})
	svc.Publish(interfaces.Event{Type: interfaces.EventJobComplete})

	assert.Equal(t, []interfaces.EventType{
		interfaces.EventJobStart,
		interfaces.EventPageError,
		interfaces.EventJobComplete,
	}, seen)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	svc := newTestService()

	svc.Subscribe(interfaces.EventJobError, func(event interfaces.Event) {
		panic("subscriber blew up")
	})

	delivered := false
	svc.Subscribe(interfaces.EventJobError, func(event interfaces.Event) {
		delivered = true
	})

	assert.NotPanics(t, func() {
		svc.Publish(interfaces.Event{Type: interfaces.EventJobError, JobID: "job-1"})
	})
	assert.True(t, delivered)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	svc := newTestService()

	assert.NotPanics(t, func() {
		svc.Publish(interfaces.Event{Type: interfaces.EventProgress, JobID: "job-1"})
	})
}

func TestNilHandlerIgnored(t *testing.T) {
	svc := newTestService()

	svc.Subscribe(interfaces.EventJobStart, nil)
	svc.SubscribeAll(nil)

	assert.NotPanics(t, func() {
		svc.Publish(interfaces.Event{Type: interfaces.EventJobStart})
	})
}

func TestCloseDropsSubscriptions(t *testing.T) {
	svc := newTestService()

	called := false
	svc.Subscribe(interfaces.EventJobStart, func(event interfaces.Event) {
		called = true
	})

	require.NoError(t, svc.Close())

	svc.Publish(interfaces.Event{Type: interfaces.EventJobStart})
	assert.False(t, called)
}

func TestEventErrorMessage(t *testing.T) {
	event := interfaces.Event{Type: interfaces.EventJobError, Err: errors.New("boom")}
	assert.Equal(t, "boom", event.ErrorMessage())

	empty := interfaces.Event{Type: interfaces.EventJobComplete}
	assert.Equal(t, "", empty.ErrorMessage())
}
