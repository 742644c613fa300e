package capture

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingKeepsLastC(t *testing.T) {
	r := NewRing[int](1000)
	for i := 1; i <= 1001; i++ {
		r.Push(i)
		require.LessOrEqual(t, r.Len(), r.Cap())
	}

	got := r.Snapshot()
	require.Len(t, got, 1000)
	assert.Equal(t, 2, got[0])
	assert.Equal(t, 1001, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1]+1, got[i])
	}
}

func TestRingPushReportsEviction(t *testing.T) {
	r := NewRing[string](2)
	assert.False(t, r.Push("a"))
	assert.False(t, r.Push("b"))
	assert.True(t, r.Push("c"))
	assert.Equal(t, []string{"b", "c"}, r.Snapshot())
}

func TestRingClear(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)
	r.Clear()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Snapshot())

	r.Push(9)
	assert.Equal(t, []int{9}, r.Snapshot())
}

func TestRingDefaultCapacity(t *testing.T) {
	assert.Equal(t, 100, NewRing[int](0).Cap())
}

func TestRingConcurrentPush(t *testing.T) {
	r := NewRing[int](50)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Push(i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
