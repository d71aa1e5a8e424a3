package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// JobTracker keeps in-memory state for asynchronous ingestion jobs.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*models.IngestJob
}

// NewJobTracker returns an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*models.IngestJob)}
}

// Start registers a new processing job and returns its snapshot.
func (t *JobTracker) Start(totalFiles int) models.IngestJob {
	job := &models.IngestJob{
		ID:        uuid.New().String(),
		Status:    models.JobProcessing,
		Total:     totalFiles,
		StartedAt: time.Now().UTC(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job, if known.
func (t *JobTracker) Get(id string) (models.IngestJob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return models.IngestJob{}, false
	}
	snapshot := *job
	snapshot.Documents = append([]models.FileOutcome(nil), job.Documents...)
	return snapshot, true
}

// RecordSuccess adds a completed file outcome.
func (t *JobTracker) RecordSuccess(id string, outcome models.FileOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.Processed++
		job.Documents = append(job.Documents, outcome)
	}
}

// RecordFailure adds a failed file outcome.
func (t *JobTracker) RecordFailure(id string, outcome models.FileOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.Failed++
		job.Documents = append(job.Documents, outcome)
	}
}

// Finish marks the job completed, or errored when err is non-nil.
func (t *JobTracker) Finish(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	if err != nil {
		job.Status = models.JobError
		job.Error = err.Error()
		return
	}
	job.Status = models.JobCompleted
}
