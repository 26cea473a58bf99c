package doc

import (
	"sync"

	"github.com/medusa-project/medusa/internal/addr"
)

// EventKind tags a notification emitted by a Document mutation.
type EventKind uint8

const (
	EventQuit EventKind = iota
	EventDocumentUpdated
	EventMemoryAreaUpdated
	EventAddressUpdated
	EventLabelUpdated
	EventTaskUpdated
)

// Event is the single message type flowing through a Subscriber's channel;
// only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	Area        *AreaUpdate
	Addresses   addr.List
	LabelAddr   addr.Address
	Label       Label
	LabelRemoved bool
	TaskName    string
	TaskStatus  string
}

// AreaUpdate describes a MemoryAreaUpdated event's payload.
type AreaUpdate struct {
	Name    string
	Removed bool
}

// eventBufferSize bounds the per-subscriber channel; a send that would
// block past this is dropped rather than stalling the mutating goroutine,
// per the contract that subscriber handlers must be cheap and the write
// lock is never held while events fire.
const eventBufferSize = 64

// Subscriber is a per-registration handle receiving every Event a Document
// emits. Subscribers hold only this value, not a reference back into the
// Document's internals, matching the "weak reference to event channels,
// tokens whose destruction detaches" ownership shape.
type Subscriber struct {
	ch     chan Event
	doc    *publisher
	closed bool
}

// Events returns the channel a subscriber should range over.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Close detaches the subscriber; it is safe to call more than once.
func (s *Subscriber) Close() {
	s.doc.unsubscribe(s)
}

type publisher struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func newPublisher() *publisher {
	return &publisher{subs: make(map[*Subscriber]struct{})}
}

func (p *publisher) subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan Event, eventBufferSize), doc: p}

	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()

	return s
}

func (p *publisher) unsubscribe(s *Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	delete(p.subs, s)
	close(s.ch)
}

// publish delivers ev to every live subscriber, synchronously, on the
// caller's goroutine. A full subscriber channel drops the event rather than
// blocking the mutator.
func (p *publisher) publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for s := range p.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}
