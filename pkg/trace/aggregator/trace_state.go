package aggregator

import (
	"sync"
	"sync/atomic"
)

// TraceState is the mutable per-trace record accumulated while the trace's
// spans finish. A trace may record more than one root operation name if its
// spans are ingested out of order or enter through multiple entry points.
// Every mutation is individually atomic; cross-field consistency is not
// guaranteed and not needed for eventually-consistent derived metrics.
type TraceState struct {
	mu               sync.Mutex
	roots            []string
	startTimeMicros  atomic.Int64
	finishTimeMicros atomic.Int64
	isError          atomic.Bool
}

func NewTraceState() *TraceState {
	return &TraceState{}
}

// AddRoot records a root operation name for the trace. The root set is
// append-only and deduplicated.
func (ts *TraceState) AddRoot(operationName string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, root := range ts.roots {
		if root == operationName {
			return
		}
	}
	ts.roots = append(ts.roots, operationName)
}

// Roots returns a snapshot of the root operation names recorded so far.
func (ts *TraceState) Roots() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	roots := make([]string, len(ts.roots))
	copy(roots, ts.roots)
	return roots
}

// SetStartAndFinishTime overwrites the trace's observed start and finish
// times. Last write wins; no causal ordering is enforced across concurrent
// writers.
func (ts *TraceState) SetStartAndFinishTime(startTimeMicros int64, finishTimeMicros int64) {
	ts.startTimeMicros.Store(startTimeMicros)
	ts.finishTimeMicros.Store(finishTimeMicros)
}

func (ts *TraceState) StartTimeMicros() int64 {
	return ts.startTimeMicros.Load()
}

func (ts *TraceState) FinishTimeMicros() int64 {
	return ts.finishTimeMicros.Load()
}

// MarkError sets the trace's error flag and reports whether this call
// performed the false to true transition, so callers can gate the first-error
// side effect correctly under races.
func (ts *TraceState) MarkError() bool {
	return ts.isError.CompareAndSwap(false, true)
}

func (ts *TraceState) IsError() bool {
	return ts.isError.Load()
}
