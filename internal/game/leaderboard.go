package game

import (
	"sync"

	"gameworld/internal/game/spatial"
)

// Leaderboard ranks playing clients by score using a skip list.
// Spectators are never on it.
//
// Operations:
//   - UpdateClient: O(log n)
//   - Rank: O(log n)
//   - RankedClient: O(log n)
//   - Top: O(log n + k)
type Leaderboard struct {
	skipList *spatial.SkipList
	mu       sync.RWMutex
}

// LeaderboardEntry is one ranked client.
type LeaderboardEntry struct {
	Client int `json:"client"`
	Score  int `json:"score"`
	Rank   int `json:"rank"`
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard(seed int64) *Leaderboard {
	return &Leaderboard{skipList: spatial.NewSkipList(seed)}
}

// UpdateClient sets a client's score, inserting it if needed.
func (lb *Leaderboard) UpdateClient(client, score int) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Insert(client, score)
}

// RemoveClient drops a client from the ranking.
func (lb *Leaderboard) RemoveClient(client int) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Remove(client)
}

// Rank returns a client's 1-indexed rank, or 0 if it is not ranked.
func (lb *Leaderboard) Rank(client int) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skipList.GetRank(client)
}

// RankedClient returns the client at a 1-indexed rank, or -1.
func (lb *Leaderboard) RankedClient(rank int) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	e := lb.skipList.GetByRank(rank)
	if e == nil {
		return -1
	}
	return e.Key
}

// Top returns the best n clients.
func (lb *Leaderboard) Top(n int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	entries := lb.skipList.GetRange(1, n)
	result := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = LeaderboardEntry{Client: e.Key, Score: e.Score, Rank: i + 1}
	}
	return result
}

// Length returns the number of ranked clients.
func (lb *Leaderboard) Length() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skipList.Length()
}

// Clear removes everyone.
func (lb *Leaderboard) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Clear()
}
