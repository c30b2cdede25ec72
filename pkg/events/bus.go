// Package events is the in-process change feed. Delivery is best effort:
// subscribers only see events published while they are subscribed, and a
// subscriber whose buffer is full misses the event. Payloads carry ids only;
// consumers re-read the store.
package events

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Event kinds.
const (
	KindStorage      = "storage"
	KindProgress     = "progress"
	KindNotification = "notification"
	KindImage        = "image"
	KindAppointment  = "appointment"
)

// Event announces that something changed.
type Event struct {
	Kind          string    `json:"kind"`
	Key           string    `json:"key,omitempty"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	CustomerID    string    `json:"customerId,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(Event)
}

// Bus fans events out to subscribers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every current subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			log.Printf("event dropped; subscriber=%d kind=%s key=%s", id, ev.Kind, ev.Key)
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
