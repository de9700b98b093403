// Package batch runs a batch of images through classification concurrently
// and decides whether the qualifying results are summarized.
package batch

import (
	"sync"
	"time"

	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

// Progress statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAllFailed = "all_failed"
)

// Progress tracks how many items of a run have resolved.
type Progress struct {
	mu sync.RWMutex

	// Counts
	Total      int
	Resolved   int
	Succeeded  int
	NotProduce int
	Failed     int

	Status string

	// Timing
	StartedAt time.Time
	UpdatedAt time.Time
}

// NewProgress creates a new progress tracker.
func NewProgress(total int) *Progress {
	now := time.Now()
	return &Progress{
		Total:     total,
		Status:    StatusPending,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Start marks the progress as started.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = StatusRunning
	p.StartedAt = time.Now()
	p.UpdatedAt = p.StartedAt
}

// Record counts one resolved outcome.
func (p *Progress) Record(kind produce.OutcomeKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case produce.KindSuccess:
		p.Succeeded++
	case produce.KindNotProduce:
		p.NotProduce++
	default:
		p.Failed++
	}
	p.Resolved++
	p.UpdatedAt = time.Now()
}

// Complete marks the progress as finished.
func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Total > 0 && p.Failed == p.Total {
		p.Status = StatusAllFailed
	} else {
		p.Status = StatusCompleted
	}
	p.UpdatedAt = time.Now()
}

// Snapshot returns a read-only copy of the current progress.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	end := time.Now()
	if p.Status == StatusCompleted || p.Status == StatusAllFailed {
		end = p.UpdatedAt
	}
	elapsed := end.Sub(p.StartedAt).Seconds()

	var estimatedRemaining *float64
	if p.Resolved > 0 && p.Resolved < p.Total {
		rate := elapsed / float64(p.Resolved)
		est := rate * float64(p.Total-p.Resolved)
		estimatedRemaining = &est
	}

	return ProgressSnapshot{
		Total:                     p.Total,
		Resolved:                  p.Resolved,
		Succeeded:                 p.Succeeded,
		NotProduce:                p.NotProduce,
		Failed:                    p.Failed,
		Status:                    p.Status,
		StartedAt:                 p.StartedAt,
		ElapsedSeconds:            elapsed,
		EstimatedRemainingSeconds: estimatedRemaining,
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	Total                     int       `json:"total" yaml:"total"`
	Resolved                  int       `json:"resolved" yaml:"resolved"`
	Succeeded                 int       `json:"succeeded" yaml:"succeeded"`
	NotProduce                int       `json:"not_produce" yaml:"not_produce"`
	Failed                    int       `json:"failed" yaml:"failed"`
	Status                    string    `json:"status" yaml:"status"`
	StartedAt                 time.Time `json:"started_at" yaml:"started_at"`
	ElapsedSeconds            float64   `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	EstimatedRemainingSeconds *float64  `json:"estimated_remaining_seconds,omitempty" yaml:"estimated_remaining_seconds,omitempty"`
}

// PercentComplete returns the percentage of items resolved.
func (s ProgressSnapshot) PercentComplete() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Total) * 100
}

// IsComplete returns true if every item has resolved.
func (s ProgressSnapshot) IsComplete() bool {
	return s.Resolved >= s.Total
}
