package sampling

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestDecisionCache(t *testing.T) {
	t.Run("Returns not found for unknown trace ids", func(t *testing.T) {
		cache, err := NewDecisionCache()
		assert.Nil(t, err)
		defer cache.Close()
		_, found := cache.Get("traceId")
		assert.False(t, found)
	})

	t.Run("Remembers keep decisions per trace id", func(t *testing.T) {
		cache, err := NewDecisionCache()
		assert.Nil(t, err)
		defer cache.Close()
		cache.Put("keptTrace", true)
		cache.Put("droppedTrace", false)
		cache.Wait()

		keep, found := cache.Get("keptTrace")
		assert.True(t, found)
		assert.True(t, keep)

		keep, found = cache.Get("droppedTrace")
		assert.True(t, found)
		assert.False(t, keep)
	})
}
