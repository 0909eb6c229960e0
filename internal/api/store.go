// Package api exposes a small diagnostic HTTP API over one attached
// accelerator: card and layout info, plus job submission with recorded
// outcomes. It exists for bring-up and lab use, not as a data path.
package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobRecord captures the outcome of one executed job.
type JobRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     string    `json:"state"`
	Retc      string    `json:"retc"`
	SizeBytes int       `json:"size_bytes"`
	ElapsedUS int64     `json:"elapsed_us"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// JobStore keeps job records in submission order.
type JobStore struct {
	mu    sync.RWMutex
	byID  map[string]JobRecord
	order []string
}

func NewJobStore() *JobStore {
	return &JobStore{byID: make(map[string]JobRecord)}
}

// NewID mints a record ID.
func NewID() string { return "job_" + uuid.NewString() }

func (s *JobStore) Add(rec JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.byID[rec.ID] = rec
}

func (s *JobStore) Get(id string) (JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

func (s *JobStore) List() []JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
