package http

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/scentmatch/backend/internal/domain"
)

// Run statuses reported by the registry
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run tracks one background analysis. Progress is stored as permille in an
// atomic so pollers never observe a torn value.
type Run struct {
	ID           string
	MerchantFile string
	Competitors  []string
	StartedAt    time.Time

	progress atomic.Uint64 // 0..1000

	mu          sync.RWMutex
	status      string
	result      *domain.AnalysisResult
	err         string
	completedAt time.Time
}

// SetProgress records the classified fraction (0..1)
func (r *Run) SetProgress(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	r.progress.Store(uint64(fraction * 1000))
}

// Progress returns the classified fraction (0..1)
func (r *Run) Progress() float64 {
	return float64(r.progress.Load()) / 1000
}

// Complete marks the run finished with its result
func (r *Run) Complete(result *domain.AnalysisResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusCompleted
	r.result = result
	r.completedAt = time.Now()
	r.progress.Store(1000)
}

// Fail marks the run failed
func (r *Run) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusFailed
	r.err = err.Error()
	r.completedAt = time.Now()
}

// Snapshot returns the run's current state for API responses
func (r *Run) Snapshot() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RunStatus{
		ID:           r.ID,
		Status:       r.status,
		Progress:     r.Progress(),
		MerchantFile: r.MerchantFile,
		Competitors:  r.Competitors,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.completedAt,
		Error:        r.err,
	}
}

// Result returns the analysis result once the run has completed
func (r *Run) Result() (*domain.AnalysisResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.status != StatusCompleted {
		return nil, false
	}
	return r.result, true
}

// RunStatus is the wire form of a run's state
type RunStatus struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Progress     float64   `json:"progress"`
	MerchantFile string    `json:"merchantFile,omitempty"`
	Competitors  []string  `json:"competitors,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Registry keeps in-flight and completed runs in memory. Runs are not
// persisted here; the history store records finished summaries separately.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty run registry
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Create registers a new running analysis and returns it
func (reg *Registry) Create(merchantFile string, competitors []string) *Run {
	run := &Run{
		ID:           uuid.NewString(),
		MerchantFile: merchantFile,
		Competitors:  competitors,
		StartedAt:    time.Now(),
		status:       StatusRunning,
	}

	reg.mu.Lock()
	reg.runs[run.ID] = run
	reg.mu.Unlock()

	return run
}

// Get looks up a run by ID
func (reg *Registry) Get(id string) (*Run, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	run, ok := reg.runs[id]
	return run, ok
}
