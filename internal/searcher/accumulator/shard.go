package accumulator

import "sync"

type shard struct {
	mu     sync.Mutex
	scores map[int]float64
}

func (s *shard) add(id int, delta float64) {
	s.mu.Lock()
	s.scores[id] += delta
	s.mu.Unlock()
}

func (s *shard) appendTo(out []Entry) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, score := range s.scores {
		out = append(out, Entry{ID: id, Score: score})
	}
	return out
}
