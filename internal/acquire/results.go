package acquire

import (
	"sort"
	"sync"

	"hls-downloader/internal/fetch"
)

// ResultSet collects segment fetch results keyed by ordinal. It is safe for
// concurrent use by fetch workers.
type ResultSet struct {
	mu      sync.Mutex
	results map[int]fetch.Result
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[int]fetch.Result)}
}

// Add records r. A second result for the same ordinal is ignored.
func (s *ResultSet) Add(r fetch.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[r.Ordinal]; exists {
		return
	}
	s.results[r.Ordinal] = r
}

// Plan returns the local paths of successful results in ascending ordinal
// order, whatever order they completed in.
func (s *ResultSet) Plan() ConcatPlan {
	var plan ConcatPlan
	for _, r := range s.sorted() {
		if r.OK() {
			plan = append(plan, r.Path)
		}
	}
	return plan
}

// Failed returns the ordinals that could not be downloaded, ascending.
func (s *ResultSet) Failed() []int {
	var failed []int
	for _, r := range s.sorted() {
		if !r.OK() {
			failed = append(failed, r.Ordinal)
		}
	}
	return failed
}

// Bytes returns the total size of successful downloads.
func (s *ResultSet) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.results {
		if r.OK() {
			n += r.Bytes
		}
	}
	return n
}

func (s *ResultSet) sorted() []fetch.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordinals := make([]int, 0, len(s.results))
	for o := range s.results {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)

	out := make([]fetch.Result, 0, len(ordinals))
	for _, o := range ordinals {
		out = append(out, s.results[o])
	}
	return out
}
