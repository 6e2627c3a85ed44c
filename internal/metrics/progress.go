package metrics

import (
	"sync"
	"time"
)

// Snapshot is a consistent view of a run's progress counters.
type Snapshot struct {
	Step         int
	TotalSteps   int
	Page         int
	PageCount    int
	Date         time.Time
	SkippedPages int
	Done         bool
}

// Percent reports completion in the 0-100 range.
func (s Snapshot) Percent() float64 {
	if s.Done {
		return 100
	}
	if s.TotalSteps == 0 {
		return 0
	}
	return float64(s.Step) / float64(s.TotalSteps) * 100
}

// Progress holds the mutable counters for one aggregation run. Snapshot may
// be called from any goroutine while the run mutates the counters.
type Progress struct {
	mu   sync.Mutex
	snap Snapshot
}

func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *Progress) start(totalSteps, pageCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{TotalSteps: totalSteps, PageCount: pageCount}
}

func (p *Progress) beginPage(date time.Time, page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Date = date
	p.snap.Page = page
	p.snap.Step++
}

func (p *Progress) skipPage() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.SkippedPages++
}

func (p *Progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Step = p.snap.TotalSteps
	p.snap.Done = true
}
