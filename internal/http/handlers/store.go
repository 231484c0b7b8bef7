package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"wanworker/internal/domain"
)

// Job lifecycle states, named the way the hosted queue names them so client
// code written against the local API ports over unchanged.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// JobRecord tracks one locally submitted job.
type JobRecord struct {
	ID        string
	Status    string
	Input     domain.JobInput
	Output    *domain.JobOutput
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobStore is the in-memory job table behind the local test API. It exists
// for development only; the production queue is the platform's.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*JobRecord
}

// NewJobStore constructs an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*JobRecord)}
}

// Create registers a new queued job and returns its record.
func (s *JobStore) Create(input domain.JobInput) *JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	rec := &JobRecord{
		ID:        uuid.NewString(),
		Status:    StatusInQueue,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[rec.ID] = rec
	return rec
}

// Get returns a copy of the record for id.
func (s *JobStore) Get(id string) (JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return JobRecord{}, false
	}
	return *rec, true
}

// SetRunning marks the job in progress.
func (s *JobStore) SetRunning(id string) {
	s.update(id, func(rec *JobRecord) {
		rec.Status = StatusInProgress
	})
}

// SetCompleted stores a successful result.
func (s *JobStore) SetCompleted(id string, output *domain.JobOutput) {
	s.update(id, func(rec *JobRecord) {
		rec.Status = StatusCompleted
		rec.Output = output
	})
}

// SetFailed stores a failure message.
func (s *JobStore) SetFailed(id string, message string) {
	s.update(id, func(rec *JobRecord) {
		rec.Status = StatusFailed
		rec.Error = message
	})
}

func (s *JobStore) update(id string, fn func(*JobRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.jobs[id]; ok {
		fn(rec)
		rec.UpdatedAt = time.Now()
	}
}
