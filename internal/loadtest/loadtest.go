// Package loadtest drives concurrent search traffic against a running
// search service and summarizes latency and result counts.
package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueries mixes plain, minus and stop-word-only queries.
var DefaultQueries = []string{
	"fluffy cat",
	"groomed dog -collar",
	"white cat fashionable collar",
	"expressive eyes",
	"starling -eugene",
	"cat dog parrot",
	"in the",
	"tail",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// Requests stops the run after this many requests; 0 means run for
	// Duration.
	Requests int64
	Mode     string
	Queries  []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	emptyCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 1024),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, returned int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		if returned == 0 {
			s.emptyCount.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	s.statusCodes[statusCode]++
	s.statusCodesMu.Unlock()
}

// Report is an immutable summary of a finished run.
type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	NoResults   int64
	Elapsed     time.Duration
	Latencies   []time.Duration
	StatusCodes map[int]int64
}

func (s *Stats) Report(elapsed time.Duration) *Report {
	s.latenciesMu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	s.latenciesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	s.statusCodesMu.Lock()
	codes := make(map[int]int64, len(s.statusCodes))
	for code, n := range s.statusCodes {
		codes[code] = n
	}
	s.statusCodesMu.Unlock()

	return &Report{
		Total:       s.totalRequests.Load(),
		Success:     s.successCount.Load(),
		Errors:      s.errorCount.Load(),
		NoResults:   s.emptyCount.Load(),
		Elapsed:     elapsed,
		Latencies:   latencies,
		StatusCodes: codes,
	}
}

// Run sends queries round-robin from cfg.Concurrency workers until the
// duration elapses, the request budget is spent or ctx is cancelled.
func Run(ctx context.Context, client *http.Client, cfg Config) (*Report, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.Duration <= 0 && cfg.Requests <= 0 {
		return nil, errors.New("loadtest needs a duration or a request count")
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	stats := NewStats()
	var issued atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		queryIdx := w
		g.Go(func() error {
			for ctx.Err() == nil {
				if cfg.Requests > 0 && issued.Add(1) > cfg.Requests {
					return nil
				}
				query := cfg.Queries[queryIdx%len(cfg.Queries)]
				queryIdx++

				begin := time.Now()
				status, returned, err := search(ctx, client, cfg, query)
				if err != nil && ctx.Err() != nil {
					return nil
				}
				stats.RecordRequest(time.Since(begin), status, returned, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats.Report(time.Since(start)), nil
}

func search(ctx context.Context, client *http.Client, cfg Config, query string) (int, int, error) {
	params := url.Values{"q": {query}}
	if cfg.Mode != "" {
		params.Set("mode", cfg.Mode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, len(body.Results), nil
}

// Percentile returns the p-th percentile of the sorted latencies.
func (r *Report) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(r.Latencies)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.Latencies) {
		idx = len(r.Latencies) - 1
	}
	return r.Latencies[idx]
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "No Results:      %d\n", r.NoResults)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)

	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		if r.Elapsed > 0 {
			fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Elapsed.Seconds())
		}
	}

	if len(r.Latencies) > 0 {
		var sum time.Duration
		for _, l := range r.Latencies {
			sum += l
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(r.Latencies)))
		fmt.Fprintf(w, "P50:    %s\n", r.Percentile(50))
		fmt.Fprintf(w, "P90:    %s\n", r.Percentile(90))
		fmt.Fprintf(w, "P99:    %s\n", r.Percentile(99))
		fmt.Fprintf(w, "Max:    %s\n", r.Latencies[len(r.Latencies)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
