package progress

import (
	"sync"
	"time"
)

// Topic identifies a notification channel on the Bus.
type Topic string

// Topics published by the application. The analysisStorage names predate this
// service and are kept for frontend compatibility.
const (
	TopicAnalysisSaved   Topic = "analysisStorage:saved"
	TopicProjectCreated  Topic = "analysisStorage:projectCreated"
	TopicSynced          Topic = "analysisStorage:synced"
	TopicUploadStarted   Topic = "document:uploadStarted"
	TopicUploadSucceeded Topic = "document:uploadSucceeded"
	TopicUploadFailed    Topic = "document:uploadFailed"
)

// Event is one fire-and-forget notification.
type Event struct {
	Topic  Topic          `json:"topic"`
	Detail map[string]any `json:"detail,omitempty"`
	At     time.Time      `json:"at"`
}

// Bus is an in-process publish/subscribe channel with typed topics. Publishing
// never blocks and gives no delivery guarantee; slow subscribers drop events.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic]map[chan Event]struct{}
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[chan Event]struct{})}
}

// Publish delivers the event to all current subscribers of the topic.
func (b *Bus) Publish(topic Topic, detail map[string]any) {
	evt := Event{Topic: topic, Detail: detail, At: time.Now().UTC()}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a subscriber for a topic. The returned cancel func must
// be called to release the subscription.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[topic]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, topic)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
