// Package spatial provides the index structures the world rebuilds or
// updates every frame: a uniform grid for trigger overlap and a ranked
// skip list for the scoreboard.
//
// This file implements a skip list with augmented span counts for
// O(log n) rank queries.
//
// Origin: Pugh (1990), "Skip Lists: A Probabilistic Alternative to Balanced Trees"
// Redis ZSET uses this exact pattern for leaderboards.
package spatial

import "math/rand"

const (
	maxLevel         = 32   // Supports 2^32 elements
	levelProbability = 0.25 // P=0.25 gives optimal balance
)

// SkipListEntry is a ranked key. Higher scores rank first; equal scores
// rank by ascending key so the order is total and deterministic.
type SkipListEntry struct {
	Key   int
	Score int
}

func (e SkipListEntry) before(o SkipListEntry) bool {
	if e.Score != o.Score {
		return e.Score > o.Score
	}
	return e.Key < o.Key
}

type skipNode struct {
	entry SkipListEntry
	next  []*skipNode // Forward pointers (one per level)
	span  []int       // Distance to next node at each level
}

// SkipList keeps entries in rank order. It is not safe for concurrent
// use; the world only touches it from the tick goroutine.
type SkipList struct {
	head   *skipNode
	level  int
	length int
	scores map[int]int // key -> current score, used to locate nodes
	rng    *rand.Rand
}

// NewSkipList creates an empty list. The seed drives level selection only.
func NewSkipList(seed int64) *SkipList {
	return &SkipList{
		head: &skipNode{
			next: make([]*skipNode, maxLevel),
			span: make([]int, maxLevel),
		},
		level:  1,
		scores: make(map[int]int),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// randomLevel returns a level in [1, maxLevel] with geometric distribution.
func (sl *SkipList) randomLevel() int {
	level := 1
	for level < maxLevel && sl.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Insert adds key or moves it to its new score.
// Time complexity: O(log n) average
func (sl *SkipList) Insert(key, score int) {
	if old, ok := sl.scores[key]; ok {
		if old == score {
			return
		}
		sl.remove(SkipListEntry{Key: key, Score: old})
	}

	e := SkipListEntry{Key: key, Score: score}
	var update [maxLevel]*skipNode
	var rank [maxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i < sl.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && x.next[i].entry.before(e) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	newLevel := sl.randomLevel()
	if newLevel > sl.level {
		for i := sl.level; i < newLevel; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].span[i] = sl.length
		}
		sl.level = newLevel
	}

	node := &skipNode{
		entry: e,
		next:  make([]*skipNode, newLevel),
		span:  make([]int, newLevel),
	}
	for i := 0; i < newLevel; i++ {
		node.next[i] = update[i].next[i]
		update[i].next[i] = node

		node.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = (rank[0] - rank[i]) + 1
	}
	for i := newLevel; i < sl.level; i++ {
		update[i].span[i]++
	}

	sl.length++
	sl.scores[key] = score
}

// Remove deletes key. It reports whether the key was present.
func (sl *SkipList) Remove(key int) bool {
	score, ok := sl.scores[key]
	if !ok {
		return false
	}
	sl.remove(SkipListEntry{Key: key, Score: score})
	return true
}

func (sl *SkipList) remove(e SkipListEntry) {
	var update [maxLevel]*skipNode
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].entry.before(e) {
			x = x.next[i]
		}
		update[i] = x
	}

	node := x.next[0]
	if node == nil || node.entry != e {
		return
	}

	for i := 0; i < sl.level; i++ {
		if update[i].next[i] == node {
			update[i].span[i] += node.span[i] - 1
			update[i].next[i] = node.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}

	sl.length--
	delete(sl.scores, e.Key)
}

// GetRank returns the 1-indexed rank of key, or 0 if absent.
func (sl *SkipList) GetRank(key int) int {
	score, ok := sl.scores[key]
	if !ok {
		return 0
	}
	e := SkipListEntry{Key: key, Score: score}

	rank := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && (x.next[i].entry.before(e) || x.next[i].entry == e) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != sl.head && x.entry == e {
			return rank
		}
	}
	return 0
}

// GetByRank returns the entry at a 1-indexed rank, or nil.
func (sl *SkipList) GetByRank(rank int) *SkipListEntry {
	if rank <= 0 || rank > sl.length {
		return nil
	}

	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] <= rank {
			traversed += x.span[i]
			x = x.next[i]
		}
		if traversed == rank {
			entry := x.entry
			return &entry
		}
	}
	return nil
}

// GetRange returns entries in rank range [start, end] (1-indexed, inclusive).
// Time complexity: O(log n + k)
func (sl *SkipList) GetRange(start, end int) []SkipListEntry {
	if start <= 0 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	result := make([]SkipListEntry, 0, end-start+1)

	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] < start {
			traversed += x.span[i]
			x = x.next[i]
		}
	}

	x = x.next[0]
	for x != nil && traversed < end {
		traversed++
		if traversed >= start {
			result = append(result, x.entry)
		}
		x = x.next[0]
	}
	return result
}

// GetScore returns the score for key.
func (sl *SkipList) GetScore(key int) (int, bool) {
	s, ok := sl.scores[key]
	return s, ok
}

// Length returns the number of entries.
func (sl *SkipList) Length() int { return sl.length }

// Clear removes all entries.
func (sl *SkipList) Clear() {
	for i := range sl.head.next {
		sl.head.next[i] = nil
		sl.head.span[i] = 0
	}
	sl.level = 1
	sl.length = 0
	clear(sl.scores)
}

// ForEach iterates in rank order until fn returns false.
func (sl *SkipList) ForEach(fn func(rank int, entry SkipListEntry) bool) {
	rank := 0
	for x := sl.head.next[0]; x != nil; x = x.next[0] {
		rank++
		if !fn(rank, x.entry) {
			return
		}
	}
}
