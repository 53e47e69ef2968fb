package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	prefixNode          = byte(0x01) // node:nodeID -> []byte{}
	prefixEdge          = byte(0x02) // edge:edgeID -> Edge
	prefixForwardIndex  = byte(0x03) // type:from:to:edgeID -> []byte{}
	prefixBackwardIndex = byte(0x04) // type:to:from:edgeID -> []byte{}

	keySeparator = byte(0x00)
)

// BadgerEngine is a persistent implementation of Engine backed by BadgerDB.
//
// The two direction indexes are materialized as key ranges: a prefix
// iteration over (type, node) is the equivalent of a B+-tree range scan
// with that pair fixed and the remaining key components unconstrained.
//
// Node IDs, edge IDs and edge types must not contain the 0x00 byte, which
// is reserved as the key separator; creates reject it.
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("./data/graph")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.CreateNode("alice")
//	engine.CreateNode("bob")
//	engine.CreateEdge(&storage.Edge{From: "alice", Type: "KNOWS", To: "bob"})
type BadgerEngine struct {
	db       *badger.DB
	mu       sync.RWMutex
	closed   bool
	inMemory bool
}

// BadgerOptions configures a BadgerEngine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Ignored when
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool
}

// NewBadgerEngine creates a persistent engine with default settings.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerEngineInMemory creates an engine that keeps everything in RAM.
// Useful for testing without a data directory.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerEngineWithOptions creates a BadgerEngine with custom configuration.
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	// Quiet by default; badger's own logging is noisy for an embedded index.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerEngine{db: db, inMemory: opts.InMemory}, nil
}

// IsInMemory returns true if the engine is running in memory-only mode.
func (b *BadgerEngine) IsInMemory() bool {
	return b.inMemory
}

func (b *BadgerEngine) ensureOpen() error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrStorageClosed
	}
	return nil
}

func (b *BadgerEngine) withView(fn func(txn *badger.Txn) error) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.db.View(fn)
}

func (b *BadgerEngine) withUpdate(fn func(txn *badger.Txn) error) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.db.Update(fn)
}

// CreateNode registers a node.
func (b *BadgerEngine) CreateNode(id NodeID) error {
	if id == "" || bytes.IndexByte([]byte(id), keySeparator) >= 0 {
		return ErrInvalidID
	}

	return b.withUpdate(func(txn *badger.Txn) error {
		key := nodeKey(id)
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, []byte{})
	})
}

// CreateEdge stores an edge and writes both direction index entries.
func (b *BadgerEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.From == "" || edge.To == "" || edge.Type == "" {
		return ErrInvalidData
	}
	// The separator byte inside any key component would alias index
	// entries into a different (type, node) range.
	if strings.IndexByte(edge.Type, keySeparator) >= 0 {
		return ErrInvalidData
	}
	if strings.IndexByte(string(edge.ID), keySeparator) >= 0 {
		return ErrInvalidID
	}
	if edge.ID == "" {
		edge.ID = EdgeID(uuid.NewString())
	}

	return b.withUpdate(func(txn *badger.Txn) error {
		key := edgeKey(edge.ID)
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		// Verify both endpoints exist
		if _, err := txn.Get(nodeKey(edge.From)); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(nodeKey(edge.To)); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		data, err := json.Marshal(edge)
		if err != nil {
			return fmt.Errorf("failed to encode edge: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		if err := txn.Set(forwardIndexKey(edge.Type, edge.From, edge.To, edge.ID), []byte{}); err != nil {
			return err
		}
		return txn.Set(backwardIndexKey(edge.Type, edge.To, edge.From, edge.ID), []byte{})
	})
}

// NodeExists reports whether a node is present in the node index.
func (b *BadgerEngine) NodeExists(id NodeID) (bool, error) {
	if id == "" {
		return false, ErrInvalidID
	}

	exists := false
	err := b.withView(func(txn *badger.Txn) error {
		_, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// ScanForward opens a cursor over the end nodes of typed edges leaving from.
func (b *BadgerEngine) ScanForward(edgeType string, from NodeID) (EdgeCursor, error) {
	return b.scan(rangePrefix(prefixForwardIndex, edgeType, from))
}

// ScanBackward opens a cursor over the start nodes of typed edges arriving at to.
func (b *BadgerEngine) ScanBackward(edgeType string, to NodeID) (EdgeCursor, error) {
	return b.scan(rangePrefix(prefixBackwardIndex, edgeType, to))
}

func (b *BadgerEngine) scan(prefix []byte) (EdgeCursor, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	txn := b.db.NewTransaction(false)
	it := txn.NewIterator(badgerIterOptsKeyOnly(prefix))
	it.Rewind()
	return &badgerEdgeCursor{txn: txn, it: it, prefixLen: len(prefix)}, nil
}

// ScanNodes opens a cursor over every node ID in key order.
func (b *BadgerEngine) ScanNodes() (NodeCursor, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	txn := b.db.NewTransaction(false)
	it := txn.NewIterator(badgerIterOptsKeyOnly([]byte{prefixNode}))
	it.Rewind()
	return &badgerNodeCursor{txn: txn, it: it}, nil
}

// Close closes the BadgerDB database.
func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// Sync forces a sync of all data to disk.
func (b *BadgerEngine) Sync() error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if b.inMemory {
		return nil
	}
	return b.db.Sync()
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// nodeKey creates a key for the node index.
func nodeKey(id NodeID) []byte {
	return append([]byte{prefixNode}, []byte(id)...)
}

// edgeKey creates a key for storing an edge.
func edgeKey(id EdgeID) []byte {
	return append([]byte{prefixEdge}, []byte(id)...)
}

// forwardIndexKey creates a key for the forward direction index.
// Format: prefix + type + 0x00 + from + 0x00 + to + 0x00 + edgeID
func forwardIndexKey(edgeType string, from, to NodeID, edgeID EdgeID) []byte {
	return indexEntryKey(prefixForwardIndex, edgeType, from, to, edgeID)
}

// backwardIndexKey creates a key for the backward direction index.
// Format: prefix + type + 0x00 + to + 0x00 + from + 0x00 + edgeID
func backwardIndexKey(edgeType string, to, from NodeID, edgeID EdgeID) []byte {
	return indexEntryKey(prefixBackwardIndex, edgeType, to, from, edgeID)
}

func indexEntryKey(prefix byte, edgeType string, keyed, neighbor NodeID, edgeID EdgeID) []byte {
	key := make([]byte, 0, 1+len(edgeType)+1+len(keyed)+1+len(neighbor)+1+len(edgeID))
	key = append(key, prefix)
	key = append(key, []byte(edgeType)...)
	key = append(key, keySeparator)
	key = append(key, []byte(keyed)...)
	key = append(key, keySeparator)
	key = append(key, []byte(neighbor)...)
	key = append(key, keySeparator)
	key = append(key, []byte(edgeID)...)
	return key
}

// rangePrefix returns the prefix fixing (type, node) in a direction index,
// leaving the neighbor and edge ID components unconstrained.
func rangePrefix(prefix byte, edgeType string, node NodeID) []byte {
	key := make([]byte, 0, 1+len(edgeType)+1+len(node)+1)
	key = append(key, prefix)
	key = append(key, []byte(edgeType)...)
	key = append(key, keySeparator)
	key = append(key, []byte(node)...)
	key = append(key, keySeparator)
	return key
}

// extractNeighbor parses the unconstrained tail of an index key.
// Tail format: neighbor + 0x00 + edgeID
func extractNeighbor(key []byte, prefixLen int) Neighbor {
	tail := key[prefixLen:]
	sep := bytes.IndexByte(tail, keySeparator)
	if sep < 0 {
		return Neighbor{Node: NodeID(tail)}
	}
	return Neighbor{Node: NodeID(tail[:sep]), Edge: EdgeID(tail[sep+1:])}
}

// ============================================================================
// Cursors
// ============================================================================

type badgerEdgeCursor struct {
	txn       *badger.Txn
	it        *badger.Iterator
	prefixLen int
	closed    bool
}

func (c *badgerEdgeCursor) Next() (Neighbor, bool) {
	if c.closed || !c.it.Valid() {
		return Neighbor{}, false
	}
	nb := extractNeighbor(c.it.Item().Key(), c.prefixLen)
	c.it.Next()
	return nb, true
}

func (c *badgerEdgeCursor) Err() error { return nil }

func (c *badgerEdgeCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.it.Close()
	c.txn.Discard()
}

type badgerNodeCursor struct {
	txn    *badger.Txn
	it     *badger.Iterator
	closed bool
}

func (c *badgerNodeCursor) Next() (NodeID, bool) {
	if c.closed || !c.it.Valid() {
		return "", false
	}
	id := NodeID(c.it.Item().Key()[1:])
	c.it.Next()
	return id, true
}

func (c *badgerNodeCursor) Err() error { return nil }

func (c *badgerNodeCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.it.Close()
	c.txn.Discard()
}
