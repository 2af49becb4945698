package counter

import (
	"fmt"
	"sync"
	"testing"
)

func TestIncrement(t *testing.T) {
	tbl := New()

	if got := tbl.Get("alice"); got != 0 {
		t.Errorf("Expected 0 for unknown user, got %d", got)
	}
	if got := tbl.Increment("alice"); got != 1 {
		t.Errorf("Expected first increment to return 1, got %d", got)
	}
	if got := tbl.Increment("alice"); got != 2 {
		t.Errorf("Expected second increment to return 2, got %d", got)
	}
	if got := tbl.Get("alice"); got != 2 {
		t.Errorf("Expected Get to return 2, got %d", got)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	tbl := New()
	const perUser = 500
	users := []string{"alice", "bob", "carol"}

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				tbl.Increment(u)
			}(u)
		}
	}
	wg.Wait()

	for _, u := range users {
		if got := tbl.Get(u); got != perUser {
			t.Errorf("Expected %s to have %d, got %d (lost updates)", u, perUser, got)
		}
	}
}

func TestSnapshotOrdering(t *testing.T) {
	tbl := New()
	for i := 0; i < 3; i++ {
		tbl.Increment("zed")
	}
	tbl.Increment("bob")
	tbl.Increment("amy")
	for i := 0; i < 3; i++ {
		tbl.Increment("carl")
	}

	snap := tbl.Snapshot()
	want := []string{"carl", "zed", "amy", "bob"}
	if len(snap) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(snap))
	}
	for i, name := range want {
		if snap[i].Username != name {
			t.Errorf("Row %d: expected %s, got %s (%v)", i, name, snap[i].Username, snap)
		}
	}
	if snap[0].Count != 3 || snap[3].Count != 1 {
		t.Errorf("Unexpected counts: %v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tbl := New()
	tbl.Increment("alice")
	snap := tbl.Snapshot()
	tbl.Increment("alice")

	if snap[0].Count != 1 {
		t.Errorf("Expected snapshot to be unaffected by later increments, got %d", snap[0].Count)
	}
	if tbl.Len() != 1 {
		t.Errorf("Expected 1 user, got %d", tbl.Len())
	}
}

func BenchmarkIncrementParallel(b *testing.B) {
	tbl := New()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			tbl.Increment(fmt.Sprintf("user-%d", i%16))
			i++
		}
	})
}
