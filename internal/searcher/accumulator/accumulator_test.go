package accumulator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulateAndSnapshot(t *testing.T) {
	a := New(3)
	a.Accumulate(7, 0.5)
	a.Accumulate(1, 0.25)
	a.Accumulate(7, 0.25)
	a.Accumulate(4, 1)

	assert.Equal(t, []Entry{
		{ID: 1, Score: 0.25},
		{ID: 4, Score: 1},
		{ID: 7, Score: 0.75},
	}, a.Snapshot())
}

func TestNewClampsShardCount(t *testing.T) {
	for _, n := range []int{-3, 0, 1} {
		a := New(n)
		assert.Equal(t, 1, a.ShardCount())
		a.Accumulate(10, 1)
		assert.Equal(t, []Entry{{ID: 10, Score: 1}}, a.Snapshot())
	}
	assert.Equal(t, 16, New(16).ShardCount())
}

func TestEmptySnapshot(t *testing.T) {
	assert.Empty(t, New(4).Snapshot())
}

func TestConcurrentAccumulate(t *testing.T) {
	const (
		workers = 16
		ids     = 100
		rounds  = 200
	)
	a := New(7)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				for id := 0; id < ids; id++ {
					a.Accumulate(id, 1)
				}
			}
		}()
	}
	wg.Wait()

	snap := a.Snapshot()
	require.Len(t, snap, ids)
	for i, e := range snap {
		assert.Equal(t, i, e.ID)
		assert.Equal(t, float64(workers*rounds), e.Score)
	}
}

func TestSnapshotWhileAccumulating(t *testing.T) {
	a := New(4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			a.Accumulate(i%50, 1)
		}
	}()
	for i := 0; i < 100; i++ {
		snap := a.Snapshot()
		for j := 1; j < len(snap); j++ {
			assert.Less(t, snap[j-1].ID, snap[j].ID)
		}
	}
	<-done
	total := 0.0
	for _, e := range a.Snapshot() {
		total += e.Score
	}
	assert.Equal(t, 10000.0, total)
}

func BenchmarkAccumulateParallel(b *testing.B) {
	a := New(64)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		id := 0
		for pb.Next() {
			a.Accumulate(id%10000, 0.1)
			id++
		}
	})
}
