// Package logging defines the structured logger the simulation core writes
// to, with an adapter over zap and a recorder for tests.
package logging

import (
	"fmt"
	"strings"
	"sync"
)

// Logger is the minimal structured logging surface used by the core.
type Logger interface {
	Info(msg string, keyValues ...any)
	Warn(msg string, keyValues ...any)
	Error(msg string, keyValues ...any)
	Debug(msg string, keyValues ...any)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
func (Nop) Debug(string, ...any) {}

// Entry is one recorded log call.
type Entry struct {
	Level     string
	Message   string
	KeyValues []any
}

// String renders the entry as "level: msg k=v ...".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Level)
	b.WriteString(": ")
	b.WriteString(e.Message)
	for i := 0; i+1 < len(e.KeyValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.KeyValues[i], e.KeyValues[i+1])
	}
	return b.String()
}

// Recorder keeps every entry in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level, msg string, kv []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, KeyValues: kv})
}

func (r *Recorder) Info(msg string, kv ...any)  { r.add("info", msg, kv) }
func (r *Recorder) Warn(msg string, kv ...any)  { r.add("warn", msg, kv) }
func (r *Recorder) Error(msg string, kv ...any) { r.add("error", msg, kv) }
func (r *Recorder) Debug(msg string, kv ...any) { r.add("debug", msg, kv) }

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns how many entries at level contain substr in their message.
func (r *Recorder) Count(level, substr string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
