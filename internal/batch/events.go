package batch

import (
	"sync"

	"trademark-opposition/backend/internal/trademark"
)

// EventType names a batch progress event.
type EventType string

const (
	EventStarted    EventType = "started"
	EventPair       EventType = "pair"
	EventPairFailed EventType = "pair_failed"
	EventComplete   EventType = "complete"
	// EventFailed ends a batch that was aborted or cancelled.
	EventFailed EventType = "failed"
)

// Terminal reports whether no further events follow this one for the batch.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventFailed
}

// Event reports batch progress. Counters are cumulative for the batch.
type Event struct {
	Type       EventType                          `json:"type"`
	BatchID    string                             `json:"batch_id"`
	Total      int                                `json:"total"`
	Completed  int                                `json:"completed"`
	Failed     int                                `json:"failed"`
	Pair       *Pair                              `json:"pair,omitempty"`
	Likelihood *trademark.GoodsServicesLikelihood `json:"likelihood,omitempty"`
	Error      string                             `json:"error,omitempty"`
}

// Observer receives progress events. Implementations must be safe for concurrent use.
type Observer interface {
	BatchEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) BatchEvent(e Event) { f(e) }

type progress struct {
	mu        sync.Mutex
	id        string
	total     int
	completed int
	failed    int
	observer  Observer
}

func (p *progress) succeed(result PairResult) {
	p.mu.Lock()
	p.completed++
	pair := result.Pair
	likelihood := result.Likelihood
	event := p.snapshot(Event{Type: EventPair, Pair: &pair, Likelihood: &likelihood})
	p.mu.Unlock()
	p.publish(event)
}

func (p *progress) fail(pair Pair, err error) {
	p.mu.Lock()
	p.failed++
	event := p.snapshot(Event{Type: EventPairFailed, Pair: &pair, Error: err.Error()})
	p.mu.Unlock()
	p.publish(event)
}

func (p *progress) emit(e Event) {
	p.mu.Lock()
	event := p.snapshot(e)
	p.mu.Unlock()
	p.publish(event)
}

// snapshot fills counters; callers hold mu.
func (p *progress) snapshot(e Event) Event {
	e.BatchID = p.id
	e.Total = p.total
	e.Completed = p.completed
	e.Failed = p.failed
	return e
}

func (p *progress) publish(e Event) {
	if p.observer != nil {
		p.observer.BatchEvent(e)
	}
}
