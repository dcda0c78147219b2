package aggregator

import (
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
)

func TestTraceState_AddRoot(t *testing.T) {
	t.Run("Records distinct roots in order", func(t *testing.T) {
		state := NewTraceState()
		state.AddRoot("checkout")
		state.AddRoot("checkout-retry")
		assert.Equal(t, []string{"checkout", "checkout-retry"}, state.Roots())
	})

	t.Run("Deduplicates repeated roots", func(t *testing.T) {
		state := NewTraceState()
		state.AddRoot("checkout")
		state.AddRoot("checkout")
		assert.Equal(t, []string{"checkout"}, state.Roots())
	})

	t.Run("Has no duplicates after concurrent appends of the same root", func(t *testing.T) {
		state := NewTraceState()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				state.AddRoot("checkout")
			}()
		}
		wg.Wait()
		assert.Equal(t, []string{"checkout"}, state.Roots())
	})

	t.Run("Roots returns a snapshot unaffected by later appends", func(t *testing.T) {
		state := NewTraceState()
		state.AddRoot("checkout")
		snapshot := state.Roots()
		state.AddRoot("checkout-retry")
		assert.Equal(t, []string{"checkout"}, snapshot)
	})
}

func TestTraceState_SetStartAndFinishTime(t *testing.T) {
	t.Run("Last write wins", func(t *testing.T) {
		state := NewTraceState()
		state.SetStartAndFinishTime(100, 200)
		state.SetStartAndFinishTime(150, 400)
		assert.Equal(t, int64(150), state.StartTimeMicros())
		assert.Equal(t, int64(400), state.FinishTimeMicros())
	})
}

func TestTraceState_MarkError(t *testing.T) {
	t.Run("Reports the transition exactly once", func(t *testing.T) {
		state := NewTraceState()
		assert.False(t, state.IsError())
		assert.True(t, state.MarkError())
		assert.False(t, state.MarkError())
		assert.True(t, state.IsError())
	})

	t.Run("Only one concurrent caller wins the transition", func(t *testing.T) {
		state := NewTraceState()
		transitions := make(chan bool, 100)
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				transitions <- state.MarkError()
			}()
		}
		wg.Wait()
		close(transitions)
		winners := 0
		for transitioned := range transitions {
			if transitioned {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}
