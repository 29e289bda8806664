package loader

import (
	"sync"

	"weather-history/internal/archive"
	"weather-history/internal/models"
)

// Unit is one location's worth of bulk-load work: the index row id, the alias,
// and the container path.
type Unit struct {
	LID         int64
	Alias       string
	ArchivePath string
}

// Record is one decoded history tagged with its destination row id.
type Record struct {
	LID      int64
	Metadata archive.EntryMetadata
	History  models.History
}

// Queue is the shared pool of work units. Units are popped destructively until
// the queue is empty; nothing is ever requeued.
type Queue struct {
	mu    sync.Mutex
	units []Unit
}

// NewQueue creates a queue preloaded with all work units.
func NewQueue(units []Unit) *Queue {
	return &Queue{units: units}
}

// Pop removes and returns the next unit. The second return is false once the
// queue is empty.
func (q *Queue) Pop() (Unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.units) == 0 {
		return Unit{}, false
	}
	unit := q.units[0]
	q.units = q.units[1:]
	return unit, true
}

// Len returns the number of units remaining.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}
