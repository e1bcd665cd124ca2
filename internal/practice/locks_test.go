package practice

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardForIsStable(t *testing.T) {
	tests := []string{"tourist", "Petr", "a_b-c", "xyz"}
	for _, h := range tests {
		first := shardFor(h)
		assert.Less(t, first, uint32(lockShards))
		assert.Equal(t, first, shardFor(h), h)
	}
}

func TestLockTableSerializesOneHandle(t *testing.T) {
	var table LockTable
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := table.Lock("tourist")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLockTableIndependentHandles(t *testing.T) {
	var table LockTable
	a, b := "alice", "bob"
	for shardFor(a) == shardFor(b) {
		b += "x"
	}

	unlockA := table.Lock(a)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := table.Lock(b)
		unlock()
		close(done)
	}()
	<-done
}
