package metrics

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing count shared by every caller that
// registers the same name and tag set.
type Counter struct {
	count atomic.Int64
}

func (c *Counter) Inc(delta int64) {
	c.count.Add(delta)
}

func (c *Counter) Count() int64 {
	return c.count.Load()
}

// Histogram accumulates raw observations between reporting flushes.
type Histogram struct {
	mu     sync.Mutex
	values []float64
}

func (h *Histogram) Update(value int64) {
	h.mu.Lock()
	h.values = append(h.values, float64(value))
	h.mu.Unlock()
}

// Drain returns the observations accumulated since the previous drain as
// centroids, merging equal values into a single weighted centroid.
func (h *Histogram) Drain() []Centroid {
	h.mu.Lock()
	values := h.values
	h.values = nil
	h.mu.Unlock()
	if len(values) == 0 {
		return nil
	}
	counts := make(map[float64]int)
	for _, value := range values {
		counts[value]++
	}
	centroids := make([]Centroid, 0, len(counts))
	for value, count := range counts {
		centroids = append(centroids, Centroid{Value: value, Count: count})
	}
	sort.Slice(centroids, func(i, j int) bool {
		return centroids[i].Value < centroids[j].Value
	})
	return centroids
}

type counterEntry struct {
	name    string
	tags    map[string]string
	counter *Counter
}

type histogramEntry struct {
	name      string
	tags      map[string]string
	histogram *Histogram
}

// Registry maps (metric name, tag set) pairs to shared counter and histogram
// handles. Handles are created lazily on first use and live for the lifetime
// of the registry; concurrent callers registering the same name and tags are
// guaranteed to receive the same handle.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*counterEntry
	histograms map[string]*histogramEntry
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*counterEntry),
		histograms: make(map[string]*histogramEntry),
	}
}

func (r *Registry) NewCounter(name string, tags map[string]string) *Counter {
	key := metricKey(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, found := r.counters[key]
	if !found {
		entry = &counterEntry{name: name, tags: tags, counter: &Counter{}}
		r.counters[key] = entry
	}
	return entry.counter
}

func (r *Registry) NewHistogram(name string, tags map[string]string) *Histogram {
	key := metricKey(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, found := r.histograms[key]
	if !found {
		entry = &histogramEntry{name: name, tags: tags, histogram: &Histogram{}}
		r.histograms[key] = entry
	}
	return entry.histogram
}

func (r *Registry) snapshotCounters() []*counterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]*counterEntry, 0, len(r.counters))
	for _, entry := range r.counters {
		entries = append(entries, entry)
	}
	return entries
}

func (r *Registry) snapshotHistograms() []*histogramEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]*histogramEntry, 0, len(r.histograms))
	for _, entry := range r.histograms {
		entries = append(entries, entry)
	}
	return entries
}

func metricKey(name string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var builder strings.Builder
	builder.WriteString(name)
	for _, key := range keys {
		builder.WriteString("|")
		builder.WriteString(key)
		builder.WriteString("=")
		builder.WriteString(tags[key])
	}
	return builder.String()
}
