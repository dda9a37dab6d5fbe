package game

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	AuditBufferSize      = 1024                   // ring buffer size
	BatchFlushSize       = 64                     // records per batch write
	BatchFlushInterval   = 100 * time.Millisecond // how often to flush
	ClientLimiterCleanup = 5 * time.Minute        // idle limiter expiry
)

// EventLog is a bounded, rate-limited audit log written as JSON lines by
// a background goroutine. Emit never blocks the tick.
type EventLog struct {
	mu     sync.Mutex
	buffer [AuditBufferSize]AuditEvent
	head   uint64 // next sequence to write
	tail   uint64 // next sequence to flush

	globalLimiter  *rate.Limiter
	clientLimiters sync.Map // map[int]*clientLimiterEntry
	perClient      rate.Limit

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    io.Writer
	closer io.Closer
	outMu  sync.Mutex

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type clientLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates an audit log with a global and a per-client rate.
func NewEventLog(perSecond, perClient float64) *EventLog {
	if perSecond <= 0 {
		perSecond = 10000
	}
	if perClient <= 0 {
		perClient = 100
	}
	return &EventLog{
		globalLimiter: rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond/10))),
		perClient:     rate.Limit(perClient),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for appending and starts the writer. An empty
// path keeps records in memory only.
func (el *EventLog) Start(filePath string) error {
	if filePath == "" {
		return el.StartWriter(nil)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.closer = file
	return el.StartWriter(file)
}

// StartWriter starts the writer goroutines flushing to w.
func (el *EventLog) StartWriter(w io.Writer) error {
	if el.running.Swap(true) {
		return nil
	}
	el.out = w

	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes what is pending and shuts down the writer.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		if !el.running.Swap(false) {
			return
		}
		close(el.stopChan)
		el.writerWg.Wait()

		el.outMu.Lock()
		if el.closer != nil {
			el.closer.Close()
		}
		el.outMu.Unlock()
	})
}

// Emit queues a record. It returns false when the record was rate
// limited or the log isn't running. A full buffer drops the oldest record.
func (el *EventLog) Emit(ev AuditEvent) bool {
	if !el.running.Load() {
		return false
	}
	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if ev.Client >= 0 && !el.clientLimiter(ev.Client).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	if el.head-el.tail >= AuditBufferSize {
		el.tail++
		el.droppedCount.Add(1)
	}
	ev.Sequence = el.head
	el.buffer[el.head%AuditBufferSize] = ev
	el.head++
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// Recent returns up to n of the newest records still held in the ring,
// oldest first. Flushed records stay readable until overwritten.
func (el *EventLog) Recent(n int) []AuditEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	avail := min(el.head, uint64(AuditBufferSize))
	if n <= 0 || uint64(n) > avail {
		n = int(avail)
	}
	out := make([]AuditEvent, 0, n)
	for seq := el.head - uint64(n); seq < el.head; seq++ {
		out = append(out, el.buffer[seq%AuditBufferSize])
	}
	return out
}

// Record builds and emits a record in one call.
func (el *EventLog) Record(t AuditType, levelTime, client int, payload any) bool {
	return el.Emit(NewAuditEvent(t, levelTime, client, payload))
}

func (el *EventLog) clientLimiter(client int) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.clientLimiters.Load(client); ok {
		e := v.(*clientLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}
	e := &clientLimiterEntry{limiter: rate.NewLimiter(el.perClient, max(1, int(el.perClient/10)))}
	e.lastUsed.Store(now)
	actual, _ := el.clientLimiters.LoadOrStore(client, e)
	return actual.(*clientLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]AuditEvent, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(ClientLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupClientLimiters(time.Now().Add(-ClientLimiterCleanup))
		}
	}
}

func (el *EventLog) cleanupClientLimiters(cutoff time.Time) {
	el.clientLimiters.Range(func(key, value any) bool {
		if value.(*clientLimiterEntry).lastUsed.Load() < cutoff.UnixNano() {
			el.clientLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []AuditEvent) []AuditEvent {
	el.mu.Lock()
	defer el.mu.Unlock()
	for el.tail < el.head && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.tail%AuditBufferSize])
		el.tail++
	}
	return batch
}

// flushBatch appends newline-delimited JSON.
func (el *EventLog) flushBatch(batch []AuditEvent) {
	el.outMu.Lock()
	defer el.outMu.Unlock()
	if el.out == nil {
		return
	}

	bw := bufio.NewWriter(el.out)
	enc := json.NewEncoder(bw)
	for _, ev := range batch {
		enc.Encode(ev)
	}
	bw.Flush()
}

// EventLogStats are the audit log counters.
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns counters for monitoring.
func (el *EventLog) Stats() EventLogStats {
	el.mu.Lock()
	pending := el.head - el.tail
	el.mu.Unlock()
	return EventLogStats{
		Total:   el.totalCount.Load(),
		Dropped: el.droppedCount.Load(),
		Pending: pending,
		Running: el.running.Load(),
	}
}

