package command

import (
	"testing"
	"time"
)

// TestParse checks command words, aliases and arguments
func TestParse(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		typ   Type
		args  int
		first string
	}{
		{"follow 3", true, CmdFollow, 1, "3"},
		{"/FollowNext", true, CmdFollowNext, 0, ""},
		{"\\team red", true, CmdTeam, 1, "red"},
		{"suicide", true, CmdKill, 0, ""},
		{"dance now", true, CmdUnknown, 1, "now"},
		{"   ", false, 0, 0, ""},
	}

	for _, tt := range tests {
		cmd, ok := Parse(2, tt.line)
		if ok != tt.ok {
			t.Errorf("%q: expected ok=%v, got %v", tt.line, tt.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if cmd.Type != tt.typ {
			t.Errorf("%q: expected type %v, got %v", tt.line, tt.typ, cmd.Type)
		}
		if len(cmd.Args) != tt.args {
			t.Errorf("%q: expected %d args, got %d", tt.line, tt.args, len(cmd.Args))
		}
		if cmd.Arg(0) != tt.first {
			t.Errorf("%q: expected first arg %q, got %q", tt.line, tt.first, cmd.Arg(0))
		}
		if cmd.Client != 2 {
			t.Errorf("Expected client 2, got %d", cmd.Client)
		}
	}
}

// TestIntArg tests numeric argument parsing
func TestIntArg(t *testing.T) {
	cmd, _ := Parse(0, "follow 12")
	if n, ok := cmd.IntArg(0); !ok || n != 12 {
		t.Errorf("Expected 12, got %d (ok=%v)", n, ok)
	}
	if _, ok := cmd.IntArg(1); ok {
		t.Error("Expected missing argument to fail")
	}
}

// TestQueueDropsWhenFull tests the non-blocking enqueue
func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	for i := 0; i < 3; i++ {
		q.Enqueue(Command{Client: i, Type: CmdReady})
	}

	stats := q.Stats()
	if stats.Enqueued != 2 || stats.Dropped != 1 {
		t.Errorf("Expected 2 enqueued and 1 dropped, got %d and %d", stats.Enqueued, stats.Dropped)
	}

	var seen []int
	n := q.Drain(func(c Command) { seen = append(seen, c.Client) })
	if n != 2 || len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("Expected clients [0 1] drained in order, got %v", seen)
	}
	if q.Stats().Pending != 0 {
		t.Errorf("Expected empty queue, got %d pending", q.Stats().Pending)
	}
}

// TestRateLimiter tests the per-client burst
func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	if !rl.Allow(1) || !rl.Allow(1) {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if rl.Allow(1) {
		t.Error("Expected third command to be limited")
	}
	if !rl.Allow(2) {
		t.Error("Expected other clients to have their own bucket")
	}

	rl.Forget(1)
	if !rl.Allow(1) {
		t.Error("Expected a forgotten client to start fresh")
	}

	if removed := rl.Cleanup(-time.Second); removed != 2 {
		t.Errorf("Expected 2 buckets removed, got %d", removed)
	}
}
