// Package storage provides the indexed edge stores Bifrost evaluates
// property paths against.
//
// The graph is stored as (from, type, to) triples with a generated edge ID.
// Two orderings are maintained so that traversal can run in either
// direction with a single range scan:
//
//   - forward index, keyed by (type, from): all end nodes of typed edges
//     leaving a node
//   - backward index, keyed by (type, to): all start nodes of typed edges
//     arriving at a node
//
// Engines return results through single-pass cursors. A cursor is a scoped
// resource: the caller fully drains or closes it before opening the next
// scan, so at most one range cursor is live at a time.
package storage

import "errors"

// Common storage errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidData   = errors.New("invalid data")
	ErrAlreadyExists = errors.New("already exists")
	ErrStorageClosed = errors.New("storage is closed")
)

// NodeID uniquely identifies a node.
type NodeID string

// EdgeID uniquely identifies an edge.
type EdgeID string

// Edge is one (from, type, to) triple. ID is assigned by the engine when
// left empty on create.
type Edge struct {
	ID   EdgeID
	From NodeID
	Type string
	To   NodeID
}

// Neighbor is one hit from an index range scan: the node on the far side of
// the edge, plus the edge that connects it.
type Neighbor struct {
	Node NodeID
	Edge EdgeID
}

// EdgeCursor is a lazily produced, finite, single-pass sequence of
// neighbors in index order.
//
// Usage:
//
//	cur, err := engine.ScanForward("KNOWS", "alice")
//	if err != nil { ... }
//	defer cur.Close()
//	for {
//		nb, ok := cur.Next()
//		if !ok {
//			break
//		}
//		// use nb
//	}
//	if err := cur.Err(); err != nil { ... }
type EdgeCursor interface {
	// Next returns the next neighbor. ok is false once the scan is
	// exhausted or has failed; check Err afterwards.
	Next() (nb Neighbor, ok bool)
	// Err returns the first storage fault hit by the scan, if any.
	Err() error
	// Close releases the cursor. Safe to call more than once.
	Close()
}

// NodeCursor is a single-pass sequence of node IDs in index order.
type NodeCursor interface {
	Next() (id NodeID, ok bool)
	Err() error
	Close()
}

// Engine is the index provider consumed by the query operators.
type Engine interface {
	// CreateNode registers a node. Creating an existing node is an error.
	CreateNode(id NodeID) error
	// CreateEdge stores an edge and updates both direction indexes. Both
	// endpoints must already exist. An empty edge ID is filled in.
	CreateEdge(edge *Edge) error
	// NodeExists reports whether a node is present in the node index.
	NodeExists(id NodeID) (bool, error)
	// ScanForward opens a cursor over the end nodes of edges with the
	// given type leaving from.
	ScanForward(edgeType string, from NodeID) (EdgeCursor, error)
	// ScanBackward opens a cursor over the start nodes of edges with the
	// given type arriving at to.
	ScanBackward(edgeType string, to NodeID) (EdgeCursor, error)
	// ScanNodes opens a cursor over every node ID.
	ScanNodes() (NodeCursor, error)
	// Close releases the engine. Further calls return ErrStorageClosed.
	Close() error
}
