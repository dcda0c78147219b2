package aggregator

import (
	"container/list"
	"go.uber.org/zap"
	"sync"
	"time"
)

// Store up to 100 million traces with the assumption that all the spans in a
// trace will be reported within 10 minutes.
const (
	DefaultMaxTraces = 100_000_000
	DefaultTTL       = 10 * time.Minute
)

// EvictionCallback is invoked exactly once per evicted trace, after the entry
// has been removed from the aggregator and outside its lock. The state is a
// live object that may have been mutated up to the moment of eviction;
// callbacks should read it through its snapshot accessors.
type EvictionCallback func(traceID string, state *TraceState)

type Config struct {
	// MaxTraces caps the number of concurrently tracked traces. Beyond it the
	// least recently accessed entry is evicted to admit a newcomer.
	MaxTraces int
	// TTL is the idle window measured from an entry's last access, after
	// which it becomes eligible for eviction.
	TTL time.Duration
}

type traceEntry struct {
	traceID    string
	state      *TraceState
	lastAccess time.Time
}

// TraceAggregator is a size- and time-bounded concurrent cache correlating
// spans that belong to the same trace. Expiry-on-idle approximates "trace is
// done" without an explicit trace-completion protocol: expired entries are
// reaped opportunistically on subsequent cache operations, so eviction may lag
// real time under light traffic. Eviction is the only destruction path and
// always runs the eviction callback.
type TraceAggregator struct {
	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List
	maxTraces int
	ttl       time.Duration
	onEvict   EvictionCallback
	logger    *zap.Logger
	now       func() time.Time
}

func NewTraceAggregator(config Config, onEvict EvictionCallback, logger *zap.Logger) *TraceAggregator {
	if config.MaxTraces <= 0 {
		config.MaxTraces = DefaultMaxTraces
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &TraceAggregator{
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		maxTraces: config.MaxTraces,
		ttl:       config.TTL,
		onEvict:   onEvict,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the state for the given trace id, constructing and inserting an
// empty one if absent. Concurrent first-callers for the same id all observe
// the same instance. The access refreshes the entry's recency and idle
// deadline. Inserting past capacity evicts the least recently accessed entry
// and never fails the caller.
func (ta *TraceAggregator) Get(traceID string) *TraceState {
	ta.mu.Lock()
	evicted := ta.collectExpiredLocked()
	element, found := ta.entries[traceID]
	var state *TraceState
	if found {
		entry := element.Value.(*traceEntry)
		entry.lastAccess = ta.now()
		ta.order.MoveToBack(element)
		state = entry.state
	} else {
		for ta.order.Len() >= ta.maxTraces {
			evicted = append(evicted, ta.removeLocked(ta.order.Front()))
		}
		state = NewTraceState()
		ta.entries[traceID] = ta.order.PushBack(&traceEntry{
			traceID:    traceID,
			state:      state,
			lastAccess: ta.now(),
		})
	}
	ta.mu.Unlock()
	ta.notifyEvicted(evicted)
	return state
}

// Lookup returns the state for the given trace id without creating one,
// refreshing the entry's recency if present. Returns nil for traces that were
// never registered or have already been evicted.
func (ta *TraceAggregator) Lookup(traceID string) *TraceState {
	ta.mu.Lock()
	evicted := ta.collectExpiredLocked()
	var state *TraceState
	if element, found := ta.entries[traceID]; found {
		entry := element.Value.(*traceEntry)
		entry.lastAccess = ta.now()
		ta.order.MoveToBack(element)
		state = entry.state
	}
	ta.mu.Unlock()
	ta.notifyEvicted(evicted)
	return state
}

// Expire evicts every entry whose idle window has elapsed. Intended for
// periodic driving; Get and Lookup already reap expired entries on their own.
func (ta *TraceAggregator) Expire() {
	ta.mu.Lock()
	evicted := ta.collectExpiredLocked()
	ta.mu.Unlock()
	ta.notifyEvicted(evicted)
}

// Len reports the number of currently tracked traces.
func (ta *TraceAggregator) Len() int {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return ta.order.Len()
}

// collectExpiredLocked removes entries idle past the ttl window, oldest first.
// Must be called holding the lock.
func (ta *TraceAggregator) collectExpiredLocked() []*traceEntry {
	deadline := ta.now().Add(-ta.ttl)
	var evicted []*traceEntry
	for {
		front := ta.order.Front()
		if front == nil {
			break
		}
		if front.Value.(*traceEntry).lastAccess.After(deadline) {
			break
		}
		evicted = append(evicted, ta.removeLocked(front))
	}
	return evicted
}

// removeLocked unlinks the element from both the map and the access-order
// list. Must be called holding the lock.
func (ta *TraceAggregator) removeLocked(element *list.Element) *traceEntry {
	entry := element.Value.(*traceEntry)
	delete(ta.entries, entry.traceID)
	ta.order.Remove(element)
	return entry
}

// notifyEvicted runs the eviction callback outside the lock so that emission
// work never blocks concurrent cache operations on other keys.
func (ta *TraceAggregator) notifyEvicted(evicted []*traceEntry) {
	if ta.onEvict == nil {
		return
	}
	for _, entry := range evicted {
		if entry.state == nil {
			continue
		}
		ta.onEvict(entry.traceID, entry.state)
	}
}
