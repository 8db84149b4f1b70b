package queue_test

import (
	"sync"
	"testing"

	"github.com/prevo-go/recto/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutTryGet_FIFO(t *testing.T) {
	q := queue.New[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	require.Equal(t, 3, q.Size())

	v, ok := q.TryGet()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.TryGet()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTryGet_EmptyReturnsFalse(t *testing.T) {
	q := queue.New[string]()
	_, ok := q.TryGet()
	assert.False(t, ok)
}

func TestDrainLast_DiscardsAllButMostRecent(t *testing.T) {
	q := queue.New[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	last, ok := q.DrainLast()
	require.True(t, ok)
	assert.Equal(t, 3, last)
	assert.Equal(t, 0, q.Size())
}

func TestDrainLast_EmptyReturnsNoElement(t *testing.T) {
	q := queue.New[int]()
	_, ok := q.DrainLast()
	assert.False(t, ok)
}

func TestDrainAll_ReturnsOrderedSnapshotAndEmpties(t *testing.T) {
	q := queue.New[int]()
	for i := 0; i < 5; i++ {
		q.Put(i)
	}

	all := q.DrainAll()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)
	assert.Equal(t, 0, q.Size())
}

func TestDrain_ConsistentSnapshotAgainstConcurrentProducer(t *testing.T) {
	q := queue.New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	stop := make(chan struct{})
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
				q.Put(i)
				i++
			}
		}
	}()

	for i := 0; i < 100; i++ {
		all := q.DrainAll()
		// A snapshot must be internally ordered even if interleaved
		// with concurrent puts.
		for j := 1; j < len(all); j++ {
			require.Less(t, all[j-1], all[j])
		}
	}
	close(stop)
	wg.Wait()
}
