package shaped

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goshape/shaper-core/internal/metrics"
	"github.com/goshape/shaper-core/pkg/config"
	"github.com/goshape/shaper-core/pkg/models"
)

// RunRecord is one run's state: the API-visible Run, its scenario, and the
// collector holding the run's time series.
type RunRecord struct {
	Run       *models.Run
	Scenario  *config.Scenario
	Collector *metrics.Collector
}

// RunStore is the in-memory registry of runs
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// NewRunStore creates an empty store
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

// Create registers a new pending run. An empty runID gets a generated UUID.
func (s *RunStore) Create(runID string, scenario *config.Scenario) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = uuid.NewString()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("run already exists: %s", runID)
	}

	rec := &RunRecord{
		Run: &models.Run{
			ID:        runID,
			Status:    models.RunStatusPending,
			Scenario:  scenario.Name,
			CreatedAt: time.Now().UTC(),
		},
		Scenario: scenario,
	}
	s.runs[runID] = rec
	return rec, nil
}

// Get returns the record for a run id
func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	return rec, ok
}

// Snapshot returns a copy of a run's API-visible state, safe to read
// while the executor is updating the record.
func (s *RunStore) Snapshot(runID string) (models.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return models.Run{}, false
	}
	return *rec.Run, true
}

// GetCollector returns a run's collector, nil until the run starts
func (s *RunStore) GetCollector(runID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.Collector, true
}

// List returns up to limit records, newest first
func (s *RunStore) List(limit int) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Run.CreatedAt.After(out[j].Run.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshots returns copies of up to limit runs, newest first
func (s *RunStore) Snapshots(limit int) []models.Run {
	recs := s.List(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Run, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.Run)
	}
	return out
}

// SetStatus transitions a run's status, stamping start/end times
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	now := time.Now().UTC()
	switch {
	case status == models.RunStatusRunning:
		if rec.Run.StartedAt.IsZero() {
			rec.Run.StartedAt = now
		}
	case status.Terminal():
		if rec.Run.EndedAt.IsZero() {
			rec.Run.EndedAt = now
		}
	}

	return rec, nil
}

// SetCollector attaches the run's statistics collector
func (s *RunStore) SetCollector(runID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Collector = c
	return nil
}

// SetSummary attaches the end-of-run summary
func (s *RunStore) SetSummary(runID string, summary *models.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Run.Summary = summary
	return nil
}
