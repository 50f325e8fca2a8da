// Package accumulator provides a lock-striped map from document id to an
// accumulating score. Each shard owns its own mutex, so concurrent updates
// to different shards never contend, and no operation ever holds more than
// one shard lock.
package accumulator

import "sort"

// Entry is one accumulated score.
type Entry struct {
	ID    int
	Score float64
}

type Accumulator struct {
	shards []shard
}

// New creates an accumulator with shardCount shards (at least one).
func New(shardCount int) *Accumulator {
	if shardCount < 1 {
		shardCount = 1
	}
	a := &Accumulator{shards: make([]shard, shardCount)}
	for i := range a.shards {
		a.shards[i].scores = make(map[int]float64)
	}
	return a
}

// Accumulate adds delta to the score of id. id must be non-negative.
func (a *Accumulator) Accumulate(id int, delta float64) {
	a.shardFor(id).add(id, delta)
}

// Snapshot copies every shard, one at a time, into a slice ordered by id.
func (a *Accumulator) Snapshot() []Entry {
	var out []Entry
	for i := range a.shards {
		out = a.shards[i].appendTo(out)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ShardCount returns the number of shards.
func (a *Accumulator) ShardCount() int {
	return len(a.shards)
}

func (a *Accumulator) shardFor(id int) *shard {
	return &a.shards[uint64(id)%uint64(len(a.shards))]
}
