package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_Emit(t *testing.T) {
	var got Event
	e := Func(func(ev Event) { got = ev })

	e.Emit(Event{Stage: StageScan, Processed: 1, Total: 10})
	assert.Equal(t, StageScan, got.Stage)
	assert.Equal(t, 1, got.Processed)
}

func TestBroadcaster_AllStages(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe()
	require.NotNil(t, sub)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Emit(Event{Stage: StageHash, Processed: 5, Total: 10})
	b.Emit(Event{Stage: StagePlan, Processed: 1, Total: 2})

	first := <-sub.Events
	assert.Equal(t, StageHash, first.Stage)
	second := <-sub.Events
	assert.Equal(t, StagePlan, second.Stage)
}

func TestBroadcaster_StageFilter(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe(StageExecute)

	b.Emit(Event{Stage: StageScan})
	b.Emit(Event{Stage: StageExecute, Processed: 3})

	got := <-sub.Events
	assert.Equal(t, StageExecute, got.Stage)
	assert.Equal(t, 3, got.Processed)
	assert.Empty(t, sub.Events)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub.ID)

	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed after unsubscribe.
	_, open := <-sub.Events
	assert.False(t, open)
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe()
	for i := 0; i < 200; i++ {
		b.Emit(Event{Stage: StageHash, Processed: i})
	}

	// The buffer bounds delivery; the emitter never blocked.
	assert.Len(t, sub.Events, 128)
}

func TestBroadcaster_Closed(t *testing.T) {
	b := NewBroadcaster()
	b.Close()

	assert.Nil(t, b.Subscribe())
	b.Emit(Event{Stage: StageScan}) // must not panic
	b.Close()                       // idempotent
}
