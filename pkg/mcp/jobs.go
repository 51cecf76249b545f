package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/logo-crawler/pkg/models"
)

// JobStatus represents the current state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job can no longer change
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents a background crawl job
type Job struct {
	ID            string               `json:"id"`
	Target        string               `json:"target"` // Site key, or the start URL for ad-hoc crawls
	SiteKey       string               `json:"site_key,omitempty"`
	StartURL      string               `json:"start_url"`
	Status        JobStatus            `json:"status"`
	StartedAt     time.Time            `json:"started_at"`
	CompletedAt   time.Time            `json:"completed_at,omitempty"`
	PagesVisited  int                  `json:"pages_visited"`
	FetchFailures int                  `json:"fetch_failures"`
	MatchCount    int                  `json:"match_count"`
	LogoURL       string               `json:"logo_url,omitempty"`
	AbortReason   models.AbortReason   `json:"abort_reason,omitempty"`
	Matches       []models.MatchRecord `json:"matches"`
	ErrorMessage  string               `json:"error_message,omitempty"`

	seq    uint64 // Creation order
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager manages background crawl jobs. Callers only ever see snapshots.
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	byTarget map[string]string // target -> jobID for active jobs
	nextSeq  uint64
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		byTarget: make(map[string]string),
	}
}

// CreateJob registers a pending job for target. If an active job already exists for
// target, that job is returned with created=false.
func (m *JobManager) CreateJob(target, siteKey, startURL string) (job *Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID, exists := m.byTarget[target]; exists {
		if existing := m.jobs[existingID]; existing != nil && !existing.Status.IsTerminal() {
			return existing.snapshot(), false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.nextSeq++
	j := &Job{
		seq:       m.nextSeq,
		ID:        uuid.New().String(),
		Target:    target,
		SiteKey:   siteKey,
		StartURL:  startURL,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Matches:   []models.MatchRecord{},
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.byTarget[target] = j.ID
	return j.snapshot(), true
}

// GetJob returns a snapshot of the job, or nil
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[jobID]; ok {
		return job.snapshot()
	}
	return nil
}

// GetActiveJob returns a snapshot of the active job for target, or nil
func (m *JobManager) GetActiveJob(target string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if jobID, exists := m.byTarget[target]; exists {
		if job := m.jobs[jobID]; job != nil && !job.Status.IsTerminal() {
			return job.snapshot()
		}
	}
	return nil
}

// IsRunning checks if a job is pending or running for target
func (m *JobManager) IsRunning(target string) bool {
	return m.GetActiveJob(target) != nil
}

// UpdateStatus updates the status of a job. Terminal jobs are left untouched.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status.IsTerminal() {
		return
	}
	job.Status = status
	if status.IsTerminal() {
		m.finishLocked(job)
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
}

// UpdateProgress updates the running counters of a job
func (m *JobManager) UpdateProgress(jobID string, pagesVisited, fetchFailures, matches int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.PagesVisited = pagesVisited
		job.FetchFailures = fetchFailures
		job.MatchCount = matches
	}
}

// Finish records a crawl outcome and moves the job to its terminal status:
// completed, cancelled (partial matches kept) or failed (aborted runs and rejected input).
func (m *JobManager) Finish(jobID string, out *models.CrawlOutcome, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if out != nil {
		job.LogoURL = out.LogoURL
		job.AbortReason = out.AbortReason
		job.PagesVisited = out.PagesVisited
		job.FetchFailures = out.FetchFailures
		job.MatchCount = len(out.Matches)
		job.Matches = append([]models.MatchRecord{}, out.Matches...)
	}
	if job.Status.IsTerminal() {
		return // Cancelled while running; keep the partial results only
	}

	switch {
	case err != nil:
		job.Status = JobStatusFailed
		job.ErrorMessage = err.Error()
	case out == nil:
		job.Status = JobStatusFailed
	case out.Aborted():
		job.Status = JobStatusFailed
		if out.Err != nil {
			job.ErrorMessage = out.Err.Error()
		}
	case out.Cancelled:
		job.Status = JobStatusCancelled
	default:
		job.Status = JobStatusCompleted
	}
	m.finishLocked(job)
}

// CancelJob cancels an active job. The crawl stops at its next page boundary and
// the job keeps whatever matches were found.
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && !job.Status.IsTerminal() {
		job.Status = JobStatusCancelled
		m.finishLocked(job)
		return true
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			job.Status = JobStatusCancelled
			m.finishLocked(job)
		}
	}
}

// ListJobs returns snapshots of all jobs, oldest first
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].seq < jobs[j].seq })
	return jobs
}

// GetContext returns the context for a job (for running the crawler)
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}

// finishLocked stamps completion and frees the target. Caller holds m.mu.
func (m *JobManager) finishLocked(job *Job) {
	if job.CompletedAt.IsZero() {
		job.CompletedAt = time.Now()
	}
	if m.byTarget[job.Target] == job.ID {
		delete(m.byTarget, job.Target)
	}
	job.cancel()
}

func (j *Job) snapshot() *Job {
	cp := *j
	cp.Matches = append([]models.MatchRecord{}, j.Matches...)
	return &cp
}
