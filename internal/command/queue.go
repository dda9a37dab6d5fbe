package command

import (
	"log"
	"sync/atomic"
	"time"
)

// Queue is a bounded, non-blocking command buffer. Producers (HTTP and
// WebSocket handlers) Enqueue; the engine drains it on its tick goroutine
// so commands never touch the world concurrently with a frame.
type Queue struct {
	commands chan Command

	// Metrics
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	dropped     atomic.Uint64
	avgWaitTime atomic.Int64 // nanoseconds, exponential moving average
}

// NewQueue creates a queue holding up to size commands.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{commands: make(chan Command, size)}
}

// Enqueue adds a command without blocking. It returns false when the
// queue is full and the command was dropped.
func (q *Queue) Enqueue(cmd Command) bool {
	cmd.ReceivedAt = time.Now()

	select {
	case q.commands <- cmd:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		if q.dropped.Load()%100 == 1 {
			log.Printf("⚠️ Command queue full, dropped %q from client %d (total dropped: %d)",
				cmd.Name, cmd.Client, q.dropped.Load())
		}
		return false
	}
}

// Drain hands every queued command to fn and returns how many ran.
// Commands enqueued while draining wait for the next call.
func (q *Queue) Drain(fn func(Command)) int {
	n := len(q.commands)
	for i := 0; i < n; i++ {
		cmd := <-q.commands
		q.updateAvgWaitTime(time.Since(cmd.ReceivedAt))
		fn(cmd)
		q.processed.Add(1)
	}
	return n
}

func (q *Queue) updateAvgWaitTime(waitTime time.Duration) {
	current := q.avgWaitTime.Load()
	// EMA with alpha = 0.1
	newAvg := (current*9 + waitTime.Nanoseconds()) / 10
	q.avgWaitTime.Store(newAvg)
}

// Stats returns current queue statistics.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Processed:      q.processed.Load(),
		Dropped:        q.dropped.Load(),
		Pending:        uint64(len(q.commands)),
		BufferSize:     uint64(cap(q.commands)),
		AvgWaitTimeMs:  float64(q.avgWaitTime.Load()) / 1e6,
		BufferUsagePct: float64(len(q.commands)) / float64(cap(q.commands)) * 100,
	}
}

// QueueStats holds queue metrics.
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}
