package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known event types published by prayerd components.
const (
	EventRetryAttempt      = "retry.attempt"
	EventProviderFetched   = "provider.fetched"
	EventScheduleArmed     = "schedule.armed"
	EventScheduleCancelled = "schedule.cancelled"
	EventMidnightRefresh   = "schedule.midnight"
)

// Event is a lightweight, in-memory signal used to decouple components.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers receive on buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Data should be small and ideally JSON-serializable.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Subscription is a handle to an active subscriber.
//
// C delivers events until Unsubscribe is called; Unsubscribe is
// idempotent and closes C.
type Subscription struct {
	C    <-chan Event
	stop func()
}

func (s *Subscription) Unsubscribe() {
	if s != nil && s.stop != nil {
		s.stop()
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) *Subscription
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery; drop if the subscriber is slow. If a
		// subscriber unsubscribes concurrently and the channel closes,
		// recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return &Subscription{C: ch, stop: stop}
}
