package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Report summarizes a result set once every submission finished.
type Report struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Results   []Result // ordered by index
	Failures  []Result
}

// ResultSet collects the futures of one run.
type ResultSet struct {
	id   string
	sink *HashWriter

	mu      sync.Mutex
	futures []*Future
}

// NewResultSet returns an empty set with a fresh run id. Accepted hashes are
// forwarded to sink when it is not nil.
func NewResultSet(sink *HashWriter) *ResultSet {
	return &ResultSet{id: uuid.NewString(), sink: sink}
}

func (s *ResultSet) ID() string {
	return s.id
}

func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.futures)
}

// Go starts task in its own goroutine and adds its future to the set.
func (s *ResultSet) Go(ctx context.Context, task Task) *Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := start(ctx, len(s.futures), task, s.persist)
	s.futures = append(s.futures, f)
	return f
}

// Record adds the result of a submission that already finished.
func (s *ResultSet) Record(res Result) *Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	res.Index = len(s.futures)
	s.persist(res)
	f := resolved(res)
	s.futures = append(s.futures, f)
	return f
}

func (s *ResultSet) persist(res Result) {
	if s.sink != nil && res.OK() {
		s.sink.Write(s.id, res)
	}
}

// Wait blocks until every future finished or ctx is done.
func (s *ResultSet) Wait(ctx context.Context) (Report, error) {
	s.mu.Lock()
	futures := make([]*Future, len(s.futures))
	copy(futures, s.futures)
	s.mu.Unlock()

	rep := Report{RunID: s.id, Total: len(futures), Results: make([]Result, 0, len(futures))}
	for _, f := range futures {
		res, err := f.Wait(ctx)
		if err != nil {
			return rep, err
		}
		rep.Results = append(rep.Results, res)
		if res.OK() {
			rep.Succeeded++
		} else {
			rep.Failed++
			rep.Failures = append(rep.Failures, res)
		}
	}
	return rep, nil
}
