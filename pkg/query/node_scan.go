package query

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/orneryd/bifrost/pkg/storage"
)

// NodeScan binds a variable to every node ID in the store, one per Next
// call. It is the usual upstream producer when a path pattern's start is a
// free variable: the scan pipes each node into the path operator's slot.
type NodeScan struct {
	engine storage.Engine
	v      VarID

	ctx     context.Context
	binding *Binding
	cur     storage.NodeCursor

	resultsFound uint64
}

// NewNodeScan creates a scan publishing node IDs to variable v.
func NewNodeScan(engine storage.Engine, v VarID) *NodeScan {
	return &NodeScan{engine: engine, v: v}
}

// Begin prepares the scan. The cursor opens lazily on the first Next.
func (s *NodeScan) Begin(ctx context.Context, b *Binding) error {
	s.ctx = ctx
	s.binding = b
	s.closeCursor()
	return nil
}

// Next binds the next node ID and returns true, or false when the store is
// exhausted.
func (s *NodeScan) Next() (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return false, err
	}

	if s.cur == nil {
		cur, err := s.engine.ScanNodes()
		if err != nil {
			return false, err
		}
		s.cur = cur
	}

	id, ok := s.cur.Next()
	if !ok {
		err := s.cur.Err()
		s.closeCursor()
		return false, err
	}

	s.binding.Set(s.v, id)
	s.resultsFound++
	return true, nil
}

// Reset rewinds the scan to the first node.
func (s *NodeScan) Reset() error {
	s.closeCursor()
	return nil
}

// AssignNulls writes the null marker to the scan's variable.
func (s *NodeScan) AssignNulls(b *Binding) {
	b.SetNull(s.v)
}

// Analyze writes the explain-plan line for this operator.
func (s *NodeScan) Analyze(w io.Writer, indent int) {
	fmt.Fprintf(w, "%sNodeScan(?%d) [results: %d]\n",
		strings.Repeat(" ", indent), s.v, s.resultsFound)
}

func (s *NodeScan) closeCursor() {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
}
