package handlers

import (
	"sync"
	"time"

	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/metrics"
	"microgrid-planner/internal/results"

	"github.com/google/uuid"
)

// Run is a solved request kept for later lookups.
type Run struct {
	ID        string
	Kind      string
	Project   string
	CreatedAt time.Time
	ExpiresAt time.Time

	Model    *formulation.Model
	Solution *formulation.Solution
	Summary  *results.Summary

	Points    []formulation.ParetoPoint
	Solutions []*formulation.Solution
}

// RunStore keeps solved runs in memory until their TTL passes. Runs are
// not persisted.
type RunStore struct {
	mu    sync.RWMutex
	store map[string]*Run
	ttl   time.Duration
	now   func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewRunStore creates a store and starts its cleanup loop. Call Close to
// stop it.
func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &RunStore{
		store: make(map[string]*Run),
		ttl:   ttl,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	go s.cleanup(5 * time.Minute)
	return s
}

// Put assigns an ID and expiry to run and stores it.
func (s *RunStore) Put(run *Run) string {
	if s == nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = uuid.NewString()
	run.CreatedAt = s.now()
	run.ExpiresAt = run.CreatedAt.Add(s.ttl)
	s.store[run.ID] = run
	metrics.RunsStored.Set(float64(len(s.store)))
	return run.ID
}

// Get retrieves a run if present and not expired.
func (s *RunStore) Get(id string) (*Run, bool) {
	if s == nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.store[id]
	if !exists {
		return nil, false
	}

	if s.now().After(run.ExpiresAt) {
		return nil, false
	}

	return run, true
}

// Len is the number of stored runs, expired ones included until cleanup.
func (s *RunStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

// Close stops the cleanup loop.
func (s *RunStore) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *RunStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

// evict removes expired runs.
func (s *RunStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, run := range s.store {
		if now.After(run.ExpiresAt) {
			delete(s.store, id)
		}
	}
	metrics.RunsStored.Set(float64(len(s.store)))
}
