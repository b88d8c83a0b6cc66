// Package corpus — ordered queue with deduplication.
// Keeps enumeration order stable while dropping documents reached twice
// (overlapping roots, a file named both directly and through its directory).
package corpus

import "path/filepath"

// Queue is an insertion-ordered set of document paths.
type Queue struct {
	items   []entry
	visited map[string]bool
}

type entry struct {
	path string
	rel  string
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a document if its absolute path hasn't been seen before.
// It reports whether the document was added.
func (q *Queue) Add(path, rel string) bool {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	if q.visited[key] {
		return false
	}
	q.visited[key] = true
	q.items = append(q.items, entry{path: path, rel: rel})
	return true
}

// Len returns the number of queued documents.
func (q *Queue) Len() int {
	return len(q.items)
}
