package jobs

import (
	"sync"
	"time"
)

// Progress is the ephemeral status of a running job.
type Progress struct {
	Step      string    `json:"step"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressMap holds progress for in-flight jobs. It is not persisted.
type ProgressMap struct {
	mu sync.RWMutex
	m  map[string]Progress
}

func NewProgressMap() *ProgressMap {
	return &ProgressMap{m: make(map[string]Progress)}
}

func (p *ProgressMap) Report(jobID, step string, current, total int) {
	if jobID == "" {
		return
	}
	p.mu.Lock()
	p.m[jobID] = Progress{Step: step, Current: current, Total: total, UpdatedAt: time.Now().UTC()}
	p.mu.Unlock()
}

func (p *ProgressMap) Get(jobID string) (Progress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.m[jobID]
	return v, ok
}

func (p *ProgressMap) Clear(jobID string) {
	p.mu.Lock()
	delete(p.m, jobID)
	p.mu.Unlock()
}
