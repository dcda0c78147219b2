package sampling

import (
	"fmt"
	"github.com/dgraph-io/ristretto"
	"time"
)

const decisionTTL = 10 * time.Minute

// DecisionCache remembers the keep/drop verdict per trace id so that later
// spans of the same trace follow the decision made for its root. Admission is
// lossy: a dropped entry only means the chain is consulted again, so the
// cache fails open.
type DecisionCache struct {
	cache *ristretto.Cache
}

func NewDecisionCache() (*DecisionCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 24,
		MaxCost:     1 << 21,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating sampling decision cache: %w", err)
	}
	return &DecisionCache{cache: cache}, nil
}

func (dc *DecisionCache) Put(traceID string, keep bool) {
	dc.cache.SetWithTTL(traceID, keep, 1, decisionTTL)
}

func (dc *DecisionCache) Get(traceID string) (keep bool, found bool) {
	value, found := dc.cache.Get(traceID)
	if !found {
		return false, false
	}
	keep, ok := value.(bool)
	if !ok {
		return false, false
	}
	return keep, true
}

// Wait blocks until pending writes have been admitted or rejected.
func (dc *DecisionCache) Wait() {
	dc.cache.Wait()
}

func (dc *DecisionCache) Close() {
	dc.cache.Close()
}
