package queue

import "time"

// SetClock replaces the queue's clock.
func (q *Queue) SetClock(now func() time.Time) {
	q.now = now
}
