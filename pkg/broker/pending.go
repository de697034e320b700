package broker

import (
	"sync"

	"github.com/cuemby/burrow/pkg/metrics"
)

// EventID is the handle subscriber write queues hold on a pending encoded
// event. Ids are monotonic and wrap around; a wrapped id could only collide
// with a live event if 2^64 events were live at once.
type EventID uint64

type pendingEvent struct {
	data                []byte
	remainingRecipients int
}

// PendingEvents stores fully encoded event frames shared across subscriber
// write queues, reference counted by remaining recipients. The recipient
// count is fixed at Add time; subscription changes after a publish do not
// retarget an in-flight event.
//
// The table is safe for concurrent use: the dispatcher adds and releases
// entries while connection writers get and release them as they drain.
type PendingEvents struct {
	mu      sync.Mutex
	events  map[EventID]*pendingEvent
	counter EventID
}

// NewPendingEvents creates an empty pending event table.
func NewPendingEvents() *PendingEvents {
	return &PendingEvents{
		events: make(map[EventID]*pendingEvent),
	}
}

// Add stores an encoded frame owed to recipients subscribers and returns its
// id. Recipients must be at least one; an event with nothing owed must never
// enter the table.
func (p *PendingEvents) Add(data []byte, recipients int) EventID {
	if recipients < 1 {
		panic("pending event recipients must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.counter++
	id := p.counter
	p.events[id] = &pendingEvent{
		data:                data,
		remainingRecipients: recipients,
	}
	metrics.PendingEvents.Set(float64(len(p.events)))
	return id
}

// Get returns the encoded bytes for id. The returned slice is read-only and
// stays valid until the last recipient releases the event.
func (p *PendingEvents) Get(id EventID) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	event, ok := p.events[id]
	if !ok {
		return nil, false
	}
	return event.data, true
}

// Release gives back one recipient slot for id, removing the event once the
// count reaches zero. Releasing an unknown id is a no-op.
func (p *PendingEvents) Release(id EventID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	event, ok := p.events[id]
	if !ok {
		return
	}
	event.remainingRecipients--
	if event.remainingRecipients == 0 {
		delete(p.events, id)
	}
	metrics.PendingEvents.Set(float64(len(p.events)))
}

// Len returns the number of live events.
func (p *PendingEvents) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *PendingEvents) remaining(id EventID) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event, ok := p.events[id]; ok {
		return event.remainingRecipients
	}
	return 0
}
