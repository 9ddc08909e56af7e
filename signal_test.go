package ripple

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal(t *testing.T) {
	t.Run("emit advances version", func(t *testing.T) {
		s := NewSignal()
		assert.Equal(t, uint64(0), s.Version())

		s.Emit()
		assert.Equal(t, uint64(1), s.Version())

		s.Emit()
		s.Emit()
		assert.Equal(t, uint64(3), s.Version())
	})

	t.Run("subscribers run on every emit", func(t *testing.T) {
		s := NewSignal()
		calls := 0
		s.Subscribe(func() { calls++ })

		s.Emit()
		s.Emit()
		assert.Equal(t, 2, calls)
	})

	t.Run("remove stops notifications", func(t *testing.T) {
		s := NewSignal()
		calls := 0
		remove := s.Subscribe(func() { calls++ })

		s.Emit()
		remove()
		s.Emit()
		assert.Equal(t, 1, calls)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := NewSignal()
		calls := 0
		remove := s.Subscribe(func() { calls++ })
		remove()
		remove()

		s.Emit()
		assert.Equal(t, 0, calls)
	})

	t.Run("same callback subscribed twice removes independently", func(t *testing.T) {
		s := NewSignal()
		calls := 0
		fn := func() { calls++ }
		removeFirst := s.Subscribe(fn)
		s.Subscribe(fn)

		removeFirst()
		s.Emit()
		assert.Equal(t, 1, calls)
	})

	t.Run("subscribing during emit does not join the pass", func(t *testing.T) {
		s := NewSignal()
		lateCalls := 0
		s.Subscribe(func() {
			s.Subscribe(func() { lateCalls++ })
		})

		s.Emit()
		assert.Equal(t, 0, lateCalls)

		s.Emit()
		assert.Equal(t, 1, lateCalls)
	})

	t.Run("unsubscribing during emit does not affect the pass", func(t *testing.T) {
		s := NewSignal()
		var removeSecond func()
		firstCalls := 0
		secondCalls := 0
		s.Subscribe(func() {
			firstCalls++
			removeSecond()
		})
		removeSecond = s.Subscribe(func() { secondCalls++ })

		s.Emit()
		assert.Equal(t, 1, firstCalls)
		assert.Equal(t, 1, secondCalls)

		s.Emit()
		assert.Equal(t, 2, firstCalls)
		assert.Equal(t, 1, secondCalls)
	})

	t.Run("concurrent emits keep version consistent", func(t *testing.T) {
		s := NewSignal()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Emit()
			}()
		}
		wg.Wait()
		assert.Equal(t, uint64(50), s.Version())
	})
}
