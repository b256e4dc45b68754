package eventbus

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishAndSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ch, unsubscribe := bus.Subscribe(TopicProgress)
	defer unsubscribe()

	jobID := uuid.New()
	progress := 42
	require.NoError(t, bus.Publish(TopicProgress, Event{JobID: jobID, Progress: &progress}))

	select {
	case event := <-ch:
		assert.Equal(t, jobID, event.JobID)
		require.NotNil(t, event.Progress)
		assert.Equal(t, 42, *event.Progress)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBus_MultipleSubscribersSameTopic(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ch1, unsub1 := bus.Subscribe(TopicCompleted)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(TopicCompleted)
	defer unsub2()

	jobID := uuid.New()
	require.NoError(t, bus.Publish(TopicCompleted, Event{JobID: jobID}))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			assert.Equal(t, jobID, event.JobID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestMemoryBus_TopicIsolation(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	activeCh, unsubActive := bus.Subscribe(TopicActive)
	defer unsubActive()
	failedCh, unsubFailed := bus.Subscribe(TopicFailed)
	defer unsubFailed()

	require.NoError(t, bus.Publish(TopicActive, Event{JobID: uuid.New()}))

	select {
	case <-activeCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for active event")
	}

	select {
	case <-failedCh:
		t.Fatal("unexpected event on unrelated topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ch, unsubscribe := bus.Subscribe(TopicProgress)
	unsubscribe()

	require.NoError(t, bus.Publish(TopicProgress, Event{JobID: uuid.New()}))

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}

func TestMemoryBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	_, unsubscribe := bus.Subscribe(TopicProgress)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			percent := i
			_ = bus.Publish(TopicProgress, Event{JobID: uuid.New(), Progress: &percent})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow/unread subscriber")
	}
}
