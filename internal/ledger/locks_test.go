package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	counter := map[int64]int{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := int64(i%3), int64((i+1)%3)
			unlock := k.Lock(b, a)
			counter[a]++
			counter[b]++
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, counter[0]+counter[1]+counter[2])
	assert.Zero(t, k.size(), "entries are dropped once released")
}

func TestKeyedMutexDedupesIDs(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(7, 7)
	assert.Equal(t, 1, k.size())
	unlock()
	assert.Zero(t, k.size())
}
