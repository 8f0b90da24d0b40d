package tracking

import (
	"sync"

	"github.com/rento-fleet/fleet-tracker/internal/models"
)

// ReportQueue is the unbounded FIFO buffer between the stream subscriber
// and the dispatcher. Arrival bursts are preserved in order; no
// deduplication happens at this stage. Enqueue is called from transport
// callbacks, Dequeue from the dispatcher tick, hence the mutex.
type ReportQueue struct {
	mu    sync.Mutex
	items []models.PositionReport
}

// NewReportQueue creates an empty queue.
func NewReportQueue() *ReportQueue {
	return &ReportQueue{}
}

// Enqueue appends a report at the tail.
func (q *ReportQueue) Enqueue(report models.PositionReport) {
	q.mu.Lock()
	q.items = append(q.items, report)
	q.mu.Unlock()
}

// Dequeue pops the head report. The second return is false when the
// queue is empty.
func (q *ReportQueue) Dequeue() (models.PositionReport, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.PositionReport{}, false
	}

	head := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Release the backing array after a drained burst.
		q.items = nil
	}
	return head, true
}

// Len returns the current queue depth.
func (q *ReportQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
