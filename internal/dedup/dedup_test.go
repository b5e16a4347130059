package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_MarkAndSeen(t *testing.T) {
	s := New(10)

	assert.False(t, s.Seen("1700000000.000100"))
	s.Mark("1700000000.000100")
	assert.True(t, s.Seen("1700000000.000100"))
	assert.False(t, s.Seen("1700000000.000200"))
	assert.Equal(t, 1, s.Len())
}

func TestSet_MarkIdempotent(t *testing.T) {
	s := New(10)
	s.Mark("a")
	s.Mark("a")
	s.Mark("a")
	assert.Equal(t, 1, s.Len())
}

func TestSet_EvictsOldest(t *testing.T) {
	s := New(3)
	s.Mark("a")
	s.Mark("b")
	s.Mark("c")
	s.Mark("d") // evicts "a"

	assert.False(t, s.Seen("a"))
	assert.True(t, s.Seen("b"))
	assert.True(t, s.Seen("d"))
	assert.Equal(t, 3, s.Len())
}

func TestSet_ReMarkRefreshesRecency(t *testing.T) {
	s := New(3)
	s.Mark("a")
	s.Mark("b")
	s.Mark("c")
	s.Mark("a") // "a" is now most recent
	s.Mark("d") // evicts "b", not "a"

	assert.True(t, s.Seen("a"))
	assert.False(t, s.Seen("b"))
}

func TestSet_Panics(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}

func TestSet_Concurrent(t *testing.T) {
	s := New(1000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("%d.%d", g, i)
				s.Mark(id)
				s.Seen(id)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, s.Len())
}
