// Package index maps normalized word labels to the clips recorded under them.
//
// Each label has its own lock, so appends to one label never wait on another.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/himanishpuri/SignVault/pkg/models"
)

// Normalize trims surrounding whitespace and lowercases a label. Every
// caller that records or looks up a label goes through it.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

type ref struct {
	id  string
	seq uint64
}

type entry struct {
	mu   sync.RWMutex
	refs []ref // ascending seq
}

// Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Index {
	return &Index{entries: make(map[string]*entry)}
}

func (x *Index) entryFor(label string, create bool) *entry {
	x.mu.RLock()
	e := x.entries[label]
	x.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if e = x.entries[label]; e == nil {
		e = &entry{}
		x.entries[label] = e
	}
	return e
}

// Record adds id under the normalized label. seq is the clip's submission
// order; the entry stays sorted by it so the newest clip is always last,
// regardless of the order in which concurrent uploads reach this call.
// Recording the same id twice is a no-op.
func (x *Index) Record(label, id string, seq uint64) {
	label = Normalize(label)
	if label == "" || id == "" {
		return
	}
	e := x.entryFor(label, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.refs {
		if r.id == id {
			return
		}
	}
	i := sort.Search(len(e.refs), func(i int) bool { return e.refs[i].seq > seq })
	e.refs = append(e.refs, ref{})
	copy(e.refs[i+1:], e.refs[i:])
	e.refs[i] = ref{id: id, seq: seq}
}

// Lookup returns the clip IDs recorded under label, oldest first. The
// second result is false when the label was never recorded.
func (x *Index) Lookup(label string) ([]string, bool) {
	e := x.entryFor(Normalize(label), false)
	if e == nil {
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.refs) == 0 {
		return nil, false
	}
	ids := make([]string, len(e.refs))
	for i, r := range e.refs {
		ids[i] = r.id
	}
	return ids, true
}

// Latest returns the most recently recorded clip ID for label.
func (x *Index) Latest(label string) (string, bool) {
	e := x.entryFor(Normalize(label), false)
	if e == nil {
		return "", false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.refs) == 0 {
		return "", false
	}
	return e.refs[len(e.refs)-1].id, true
}

// Labels lists every recorded label with its clip count, sorted by label.
func (x *Index) Labels() []models.LabelCount {
	x.mu.RLock()
	out := make([]models.LabelCount, 0, len(x.entries))
	entries := make([]*entry, 0, len(x.entries))
	for label, e := range x.entries {
		out = append(out, models.LabelCount{Label: label})
		entries = append(entries, e)
	}
	x.mu.RUnlock()

	for i, e := range entries {
		e.mu.RLock()
		out[i].Clips = len(e.refs)
		e.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Len returns the number of distinct labels.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
