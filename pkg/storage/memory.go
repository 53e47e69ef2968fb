package storage

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryEngine is a thread-safe in-memory implementation of Engine.
// It's useful for:
// - Unit testing (no disk I/O)
// - Small graphs that fit in RAM
type MemoryEngine struct {
	mu    sync.RWMutex
	nodes map[NodeID]struct{}
	edges map[EdgeID]*Edge

	// Direction indexes for range scans
	forward  map[indexKey][]Neighbor // (type, from) -> to nodes
	backward map[indexKey][]Neighbor // (type, to) -> from nodes

	closed bool
}

type indexKey struct {
	edgeType string
	node     NodeID
}

// NewMemoryEngine creates a new in-memory storage engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:    make(map[NodeID]struct{}),
		edges:    make(map[EdgeID]*Edge),
		forward:  make(map[indexKey][]Neighbor),
		backward: make(map[indexKey][]Neighbor),
	}
}

// CreateNode registers a node.
func (m *MemoryEngine) CreateNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	if _, exists := m.nodes[id]; exists {
		return ErrAlreadyExists
	}

	m.nodes[id] = struct{}{}
	return nil
}

// CreateEdge stores an edge and updates both direction indexes.
func (m *MemoryEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.From == "" || edge.To == "" || edge.Type == "" {
		return ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	if _, exists := m.nodes[edge.From]; !exists {
		return ErrNotFound
	}
	if _, exists := m.nodes[edge.To]; !exists {
		return ErrNotFound
	}

	if edge.ID == "" {
		edge.ID = EdgeID(uuid.NewString())
	}
	if _, exists := m.edges[edge.ID]; exists {
		return ErrAlreadyExists
	}

	stored := *edge
	m.edges[stored.ID] = &stored

	fk := indexKey{edgeType: stored.Type, node: stored.From}
	m.forward[fk] = insertNeighbor(m.forward[fk], Neighbor{Node: stored.To, Edge: stored.ID})

	bk := indexKey{edgeType: stored.Type, node: stored.To}
	m.backward[bk] = insertNeighbor(m.backward[bk], Neighbor{Node: stored.From, Edge: stored.ID})

	return nil
}

// insertNeighbor keeps each adjacency list sorted, matching the key order a
// persistent index produces.
func insertNeighbor(list []Neighbor, nb Neighbor) []Neighbor {
	i := sort.Search(len(list), func(i int) bool {
		if list[i].Node != nb.Node {
			return list[i].Node > nb.Node
		}
		return list[i].Edge >= nb.Edge
	})
	list = append(list, Neighbor{})
	copy(list[i+1:], list[i:])
	list[i] = nb
	return list
}

// NodeExists reports whether a node is present.
func (m *MemoryEngine) NodeExists(id NodeID) (bool, error) {
	if id == "" {
		return false, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStorageClosed
	}
	_, exists := m.nodes[id]
	return exists, nil
}

// ScanForward opens a cursor over typed edges leaving from.
func (m *MemoryEngine) ScanForward(edgeType string, from NodeID) (EdgeCursor, error) {
	return m.scan(indexKey{edgeType: edgeType, node: from}, m.forward)
}

// ScanBackward opens a cursor over typed edges arriving at to.
func (m *MemoryEngine) ScanBackward(edgeType string, to NodeID) (EdgeCursor, error) {
	return m.scan(indexKey{edgeType: edgeType, node: to}, m.backward)
}

func (m *MemoryEngine) scan(key indexKey, index map[indexKey][]Neighbor) (EdgeCursor, error) {
	if key.edgeType == "" || key.node == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	// Copy so the cursor stays valid if the engine mutates mid-scan.
	hits := make([]Neighbor, len(index[key]))
	copy(hits, index[key])
	return &memoryEdgeCursor{hits: hits}, nil
}

// ScanNodes opens a cursor over every node ID in sorted order.
func (m *MemoryEngine) ScanNodes() (NodeCursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	ids := make([]NodeID, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &memoryNodeCursor{ids: ids}, nil
}

// Close releases the engine.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	m.closed = true
	m.nodes = nil
	m.edges = nil
	m.forward = nil
	m.backward = nil
	return nil
}

type memoryEdgeCursor struct {
	hits []Neighbor
	pos  int
}

func (c *memoryEdgeCursor) Next() (Neighbor, bool) {
	if c.pos >= len(c.hits) {
		return Neighbor{}, false
	}
	nb := c.hits[c.pos]
	c.pos++
	return nb, true
}

func (c *memoryEdgeCursor) Err() error { return nil }

func (c *memoryEdgeCursor) Close() { c.hits = nil }

type memoryNodeCursor struct {
	ids []NodeID
	pos int
}

func (c *memoryNodeCursor) Next() (NodeID, bool) {
	if c.pos >= len(c.ids) {
		return "", false
	}
	id := c.ids[c.pos]
	c.pos++
	return id, true
}

func (c *memoryNodeCursor) Err() error { return nil }

func (c *memoryNodeCursor) Close() { c.ids = nil }
