package feed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_RecentIsNewestFirst(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 3; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{3, 2, 1}, r.Recent(0, nil))
	assert.Equal(t, []int{3, 2}, r.Recent(2, nil))
	assert.Equal(t, 3, r.Len())
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 7; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{7, 6, 5}, r.Recent(10, nil))
}

func TestRing_FilterAppliesBeforeLimit(t *testing.T) {
	r := NewRing[int](10)
	for i := 1; i <= 10; i++ {
		r.Push(i)
	}
	even := func(v int) bool { return v%2 == 0 }
	assert.Equal(t, []int{10, 8, 6}, r.Recent(3, even))
	assert.Equal(t, []int{10, 8, 6, 4, 2}, r.Recent(0, even))
}

func TestRing_DefaultCapacity(t *testing.T) {
	r := NewRing[string](0)
	assert.Equal(t, DefaultCapacity, r.Cap())
	assert.Empty(t, r.Recent(20, nil))
}

func TestRing_ConcurrentPush(t *testing.T) {
	r := NewRing[int](100)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Push(i)
				_ = r.Recent(5, nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, r.Len())
}
