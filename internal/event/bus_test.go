package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered event types.
type recorder struct {
	mu    sync.Mutex
	types []EventType
}

func (r *recorder) fn(e Event) {
	r.mu.Lock()
	r.types = append(r.types, e.Type)
	r.mu.Unlock()
}

func (r *recorder) got() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventType(nil), r.types...)
}

func TestBus_PublishAsync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan Event, 1)
	unsub := bus.Subscribe(TemplateStarted, func(e Event) { received <- e })
	defer unsub()

	bus.Publish(Event{Type: TemplateStarted, Data: TemplateStartedData{SessionID: "01HZX", Prompt: "chess club"}})

	select {
	case e := <-received:
		data, ok := e.Data.(TemplateStartedData)
		require.True(t, ok, "data keeps its type in process")
		assert.Equal(t, "01HZX", data.SessionID)
		assert.Equal(t, "chess club", data.Prompt)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_FilteringAndOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var started, all recorder
	bus.Subscribe(TemplateStarted, started.fn)
	bus.SubscribeAll(all.fn)

	var order []string
	bus.Subscribe(TemplateUpdated, func(Event) { order = append(order, "typed") })
	bus.SubscribeAll(func(e Event) {
		if e.Type == TemplateUpdated {
			order = append(order, "all")
		}
	})

	bus.PublishSync(Event{Type: TemplateStarted})
	bus.PublishSync(Event{Type: TemplateUpdated})
	bus.PublishSync(Event{Type: TemplateStarted})
	bus.PublishSync(Event{Type: ChatMessage})

	assert.Equal(t, []EventType{TemplateStarted, TemplateStarted}, started.got())
	assert.Equal(t, []EventType{TemplateStarted, TemplateUpdated, TemplateStarted, ChatMessage}, all.got())
	assert.Equal(t, []string{"typed", "all"}, order, "type subscribers run before catch-all ones")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var typed, all, kept int32
	unsubTyped := bus.Subscribe(TemplateCompleted, func(Event) { atomic.AddInt32(&typed, 1) })
	unsubAll := bus.SubscribeAll(func(Event) { atomic.AddInt32(&all, 1) })
	bus.Subscribe(TemplateCompleted, func(Event) { atomic.AddInt32(&kept, 1) })

	bus.PublishSync(Event{Type: TemplateCompleted})
	unsubTyped()
	unsubAll()
	unsubAll() // twice is harmless
	bus.PublishSync(Event{Type: TemplateCompleted})

	assert.EqualValues(t, 1, atomic.LoadInt32(&typed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&all))
	assert.EqualValues(t, 2, atomic.LoadInt32(&kept))
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: TemplateFailed})
		bus.PublishSync(Event{Type: TemplateFailed})
	})
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(TemplateUpdated, func(Event) { atomic.AddInt32(&count, 1) })
			defer unsub()
			for j := 0; j < 10; j++ {
				bus.PublishSync(Event{Type: TemplateUpdated})
			}
		}()
	}
	wg.Wait()

	// Each publisher at least sees its own subscription.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(100))
}

func TestBus_MessagesMirror(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Messages(ctx)
	require.NoError(t, err)

	bus.PublishSync(Event{Type: TemplateSkipped, Data: TemplateSkippedData{SessionID: "s1", Unit: "ROLE", Value: "Admin", Reason: "too few fields"}})

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, string(TemplateSkipped), msg.Metadata.Get(MetadataType))

		var decoded struct {
			Type EventType           `json:"type"`
			Data TemplateSkippedData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, TemplateSkipped, decoded.Type)
		assert.Equal(t, "too few fields", decoded.Data.Reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mirrored message")
	}
}

func TestBus_MirrorSkipsUnencodableData(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Messages(ctx)
	require.NoError(t, err)

	var delivered int32
	bus.SubscribeAll(func(Event) { atomic.AddInt32(&delivered, 1) })
	bus.PublishSync(Event{Type: TemplateUpdated, Data: make(chan int)})
	bus.PublishSync(Event{Type: TemplateCompleted})

	assert.EqualValues(t, 2, atomic.LoadInt32(&delivered), "subscribers still get it")
	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, string(TemplateCompleted), msg.Metadata.Get(MetadataType))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mirrored message")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.SubscribeAll(func(Event) { atomic.AddInt32(&count, 1) })

	msgs, err := bus.Messages(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "closing twice is fine")

	bus.PublishSync(Event{Type: TemplateStarted})
	assert.Zero(t, atomic.LoadInt32(&count))

	unsub := bus.Subscribe(TemplateStarted, func(Event) { atomic.AddInt32(&count, 1) })
	unsub()
	bus.PublishSync(Event{Type: TemplateStarted})
	assert.Zero(t, atomic.LoadInt32(&count))

	select {
	case _, ok := <-msgs:
		assert.False(t, ok, "mirror channel closes with the bus")
	case <-time.After(time.Second):
		t.Fatal("mirror channel did not close")
	}
}

func TestDefaultAndReset(t *testing.T) {
	first := Default()
	assert.Same(t, first, Default())

	var count int32
	first.Subscribe(TemplateStarted, func(Event) { atomic.AddInt32(&count, 1) })
	first.PublishSync(Event{Type: TemplateStarted})

	Reset()
	second := Default()
	assert.NotSame(t, first, second)

	second.PublishSync(Event{Type: TemplateStarted})
	first.PublishSync(Event{Type: TemplateStarted})
	assert.EqualValues(t, 1, atomic.LoadInt32(&count), "old subscribers are dropped")
}
