// Package counter keeps per-user upload counts for the leaderboard.
package counter

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/himanishpuri/SignVault/pkg/models"
)

// Table holds one atomic counter per username. Increments for the same
// user are linearizable; different users never contend beyond the first
// increment that creates their counter.
type Table struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

func New() *Table {
	return &Table{counters: make(map[string]*atomic.Int64)}
}

func (t *Table) counterFor(username string) *atomic.Int64 {
	t.mu.RLock()
	c := t.counters[username]
	t.mu.RUnlock()
	if c != nil {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c = t.counters[username]; c == nil {
		c = new(atomic.Int64)
		t.counters[username] = c
	}
	return c
}

// Increment adds one upload for username and returns the new count.
// Usernames are compared exactly; callers trim them first.
func (t *Table) Increment(username string) int64 {
	return t.counterFor(username).Add(1)
}

// Get returns the count for username, or 0 if it has never uploaded.
func (t *Table) Get(username string) int64 {
	t.mu.RLock()
	c := t.counters[username]
	t.mu.RUnlock()
	if c == nil {
		return 0
	}
	return c.Load()
}

// Snapshot returns every user sorted by count descending, then username
// ascending.
func (t *Table) Snapshot() []models.UserCount {
	t.mu.RLock()
	out := make([]models.UserCount, 0, len(t.counters))
	for name, c := range t.counters {
		out = append(out, models.UserCount{Username: name, Count: c.Load()})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// Len returns the number of users with at least one upload.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.counters)
}
