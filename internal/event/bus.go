package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
)

// Topic is the watermill topic every event is mirrored to.
const Topic = "serverbuilder.events"

// MetadataType is the watermill metadata key holding the event type.
const MetadataType = "event_type"

// EventType names an event.
type EventType string

const (
	TemplateStarted   EventType = "template.started"
	TemplateUpdated   EventType = "template.updated"
	TemplateSkipped   EventType = "template.unit.skipped"
	TemplateCompleted EventType = "template.completed"
	TemplateCancelled EventType = "template.cancelled"
	TemplateFailed    EventType = "template.failed"
	ChatMessage       EventType = "chat.message"
	ToolkitGenerated  EventType = "toolkit.generated"
)

// anyType is the subscription key for SubscribeAll.
const anyType EventType = ""

// Event is one published occurrence. Data is one of the *Data types.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber receives events.
type Subscriber func(event Event)

type subscription struct {
	id uint64
	fn Subscriber
}

// Bus is a fan-out event bus. The zero value is not usable; call NewBus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscription
	closed bool

	nextID atomic.Uint64
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus with its own watermill channel.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[EventType][]subscription),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
	}
}

var (
	defaultMu  sync.Mutex
	defaultBus = NewBus()
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultBus
}

// Reset closes the process-wide bus and installs a fresh one.
func Reset() {
	defaultMu.Lock()
	old := defaultBus
	defaultBus = NewBus()
	defaultMu.Unlock()
	old.Close()
}

// Subscribe registers fn for one event type and returns its cancel func.
func (b *Bus) Subscribe(t EventType, fn Subscriber) func() {
	return b.add(t, fn)
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	return b.add(anyType, fn)
}

func (b *Bus) add(t EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.nextID.Add(1)
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: fn})
	return func() { b.remove(t, id) }
}

func (b *Bus) remove(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[t]
	for i, s := range list {
		if s.id == id {
			b.subs[t] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// targets snapshots the subscribers for t, type-specific ones first.
func (b *Bus) targets(t EventType) ([]Subscriber, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false
	}

	out := make([]Subscriber, 0, len(b.subs[t])+len(b.subs[anyType]))
	for _, s := range b.subs[t] {
		out = append(out, s.fn)
	}
	if t != anyType {
		for _, s := range b.subs[anyType] {
			out = append(out, s.fn)
		}
	}
	return out, true
}

// Publish delivers e to each subscriber on its own goroutine.
func (b *Bus) Publish(e Event) {
	b.deliver(e, true)
}

// PublishSync delivers e to every subscriber before returning.
func (b *Bus) PublishSync(e Event) {
	b.deliver(e, false)
}

func (b *Bus) deliver(e Event, async bool) {
	subs, ok := b.targets(e.Type)
	if !ok {
		return
	}
	for _, fn := range subs {
		if async {
			go fn(e)
		} else {
			fn(e)
		}
	}
	b.mirror(e)
}

// mirror copies e onto the watermill topic. With no stream subscriber the
// gochannel drops it.
func (b *Bus) mirror(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logging.Debug().Err(err).Str("type", string(e.Type)).Msg("event not mirrored")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataType, string(e.Type))
	_ = b.pubsub.Publish(Topic, msg)
}

// Messages subscribes to the JSON mirror. The channel closes when ctx is
// done or the bus is closed. Consumers must Ack each message.
func (b *Bus) Messages(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close drops every subscriber and closes the mirror. Later publishes are
// ignored.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subs = make(map[EventType][]subscription)
	b.mu.Unlock()

	return b.pubsub.Close()
}
