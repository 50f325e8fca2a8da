package analytics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	SearchErrors      int64        `json:"search_errors"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	NoResultRequests  int          `json:"no_result_requests"`
	TrackedRequests   int          `json:"tracked_requests"`
	TotalDocsIndexed  int64        `json:"total_docs_indexed"`
	TotalDocsRemoved  int64        `json:"total_docs_removed"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	CapturedAt        time.Time    `json:"captured_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over every request since start. The
// latency percentiles use the most recent maxLatencySamples requests.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	searchErrors      atomic.Int64
	zeroResults       atomic.Int64
	docsIndexed       atomic.Int64
	docsRemoved       atomic.Int64
	latencies         []int64
	latencyPos        int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	topN              int
	startTime         time.Time
}

func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		topN:              topN,
		startTime:         time.Now(),
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)
	switch event.Type {
	case EventSearchError:
		a.searchErrors.Add(1)
		return
	case EventZeroResult:
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyPos] = event.LatencyMs
		a.latencyPos = (a.latencyPos + 1) % maxLatencySamples
	}
	a.queryCounts[event.Query]++
	if event.Type == EventZeroResult {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordDocument(event DocumentEvent) {
	switch event.Type {
	case EventIndexDocument:
		a.docsIndexed.Add(1)
	case EventRemoveDocument:
		a.docsRemoved.Add(1)
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches.Load(),
		SearchErrors:     a.searchErrors.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
		TotalDocsIndexed: a.docsIndexed.Load(),
		TotalDocsRemoved: a.docsRemoved.Load(),
		CapturedAt:       time.Now().UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, a.topN)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, a.topN)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query text so ties are stable.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
