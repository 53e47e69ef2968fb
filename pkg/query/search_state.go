package query

import "github.com/orneryd/bifrost/pkg/storage"

// SearchState is one frontier element of the automaton-guided search: a
// graph node paired with the automaton state reached when arriving at it.
// It is a comparable value type, so structural equality and hashing come
// from the language; the visited set uses it directly as a map key.
type SearchState struct {
	Node  storage.NodeID
	State int
}

// visitedSet tracks search states already enqueued or expanded. States are
// never removed during one enumeration; this is the sole termination guard
// on cyclic graphs, bounding the search at |nodes| x |automaton states|
// expansions.
type visitedSet map[SearchState]struct{}

// insert adds the state and reports whether it was newly inserted.
func (v visitedSet) insert(s SearchState) bool {
	if _, ok := v[s]; ok {
		return false
	}
	v[s] = struct{}{}
	return true
}

func (v visitedSet) contains(s SearchState) bool {
	_, ok := v[s]
	return ok
}

// stateQueue is the FIFO frontier of the BFS, so states dequeue in
// non-decreasing path-length order.
type stateQueue struct {
	items []SearchState
	head  int
}

func (q *stateQueue) enqueue(s SearchState) {
	q.items = append(q.items, s)
}

func (q *stateQueue) dequeue() (SearchState, bool) {
	if q.head >= len(q.items) {
		return SearchState{}, false
	}
	s := q.items[q.head]
	q.head++
	// Reclaim the drained prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return s, true
}

func (q *stateQueue) empty() bool {
	return q.head >= len(q.items)
}
