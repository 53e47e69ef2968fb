package query

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/orneryd/bifrost/pkg/automaton"
	"github.com/orneryd/bifrost/pkg/storage"
)

// PathEnum enumerates every node reachable from a single anchored start
// node via a path whose edge-type sequence is accepted by a PathAutomaton.
//
// It evaluates patterns with exactly one free endpoint, e.g.
// (alice)-[:KNOWS*]->(?x). Patterns anchored at the far end are rewritten
// by the planner into a forward search over the reversed automaton
// (automaton.Reverse), so the engine itself always searches outward from
// one anchor; transitions simply declare which direction index to consult.
//
// The search runs over (node, automaton state) pairs: a move from
// (n1, s1) to (n2, s2) is possible only if the graph holds a typed edge
// connecting n1 and n2 in the transition's direction and (s1, type, s2) is
// an automaton transition. Classic BFS with a visited set over these pairs
// guarantees termination on cyclic graphs.
//
// Each end node is emitted at most once per enumeration, no matter how many
// accepting states or distinct paths reach it. If the automaton's start
// state accepts, the anchor itself is the first result (empty path).
type PathEnum struct {
	// Fixed at construction
	engine  storage.Engine
	auto    *automaton.PathAutomaton
	start   Identity
	end     VarID
	pathVar VarID // NoVar when the pattern binds no path variable

	// Determined in Begin
	ctx          context.Context
	binding      *Binding
	startID      storage.NodeID
	startMissing bool

	// BFS state, rebuilt on Begin/Reset
	pendingSelf bool
	exhausted   bool
	visited     visitedSet
	open        stateQueue
	emitted     map[storage.NodeID]struct{}
	ready       []storage.NodeID

	// Statistics
	resultsFound uint64
	indexScans   uint64
}

// NewPathEnum creates the operator. end is the variable the reached nodes
// are published to; pathVar may be NoVar.
func NewPathEnum(engine storage.Engine, start Identity, end VarID, pathVar VarID, auto *automaton.PathAutomaton) *PathEnum {
	return &PathEnum{
		engine:  engine,
		auto:    auto,
		start:   start,
		end:     end,
		pathVar: pathVar,
	}
}

// Begin resolves the start identity against the binding and seeds the
// search. A constant start node absent from the node index makes the
// operator permanently exhausted; Next then always returns false.
func (p *PathEnum) Begin(ctx context.Context, b *Binding) error {
	p.ctx = ctx
	p.binding = b
	p.startID = p.start.resolve(b)

	p.startMissing = false
	if !p.start.IsVariable() {
		exists, err := p.engine.NodeExists(p.startID)
		if err != nil {
			return err
		}
		p.startMissing = !exists
	}

	p.seed()
	return nil
}

// seed rebuilds the frontier, visited set and dedup set for a fresh
// enumeration from the already-resolved start.
func (p *PathEnum) seed() {
	p.visited = make(visitedSet)
	p.open = stateQueue{}
	p.emitted = make(map[storage.NodeID]struct{})
	p.ready = p.ready[:0]
	p.exhausted = p.startMissing
	p.pendingSelf = false

	if p.startMissing {
		return
	}

	first := SearchState{Node: p.startID, State: p.auto.Start()}
	p.visited.insert(first)
	p.open.enqueue(first)

	if p.auto.StartIsFinal() {
		p.pendingSelf = true
		p.emitted[p.startID] = struct{}{}
	}
}

// Next produces one answer per call. Search states are expanded whole: one
// index range scan per outgoing transition, every cursor fully drained
// before the next opens, never suspending mid-expansion.
func (p *PathEnum) Next() (bool, error) {
	if p.exhausted {
		return false, nil
	}

	// Empty path: the anchor itself is a result.
	if p.pendingSelf {
		p.pendingSelf = false
		p.binding.Set(p.end, p.startID)
		if p.pathVar != NoVar {
			p.binding.SetNull(p.pathVar)
		}
		p.resultsFound++
		return true, nil
	}

	for {
		if len(p.ready) > 0 {
			node := p.ready[0]
			p.ready = p.ready[1:]
			p.binding.Set(p.end, node)
			if p.pathVar != NoVar {
				p.binding.Set(p.pathVar, node)
			}
			p.resultsFound++
			return true, nil
		}

		if err := p.ctx.Err(); err != nil {
			return false, err
		}

		current, ok := p.open.dequeue()
		if !ok {
			p.exhausted = true
			return false, nil
		}

		for _, tr := range p.auto.TransitionsFrom(current.State) {
			if err := p.expand(current.Node, tr); err != nil {
				return false, err
			}
		}
	}
}

// expand issues the index range scan for one transition out of the current
// node and folds every unvisited neighbor state into the frontier.
func (p *PathEnum) expand(node storage.NodeID, tr automaton.Transition) error {
	cur, err := p.scanTransition(tr, node)
	if err != nil {
		return err
	}
	p.indexScans++

	for {
		nb, ok := cur.Next()
		if !ok {
			break
		}
		next := SearchState{Node: nb.Node, State: tr.To}
		if !p.visited.insert(next) {
			continue
		}
		p.open.enqueue(next)

		if p.auto.IsFinal(tr.To) {
			if _, done := p.emitted[nb.Node]; !done {
				p.emitted[nb.Node] = struct{}{}
				p.ready = append(p.ready, nb.Node)
			}
		}
	}

	err = cur.Err()
	cur.Close()
	return err
}

// scanTransition opens the range scan fixing (type, node) in the direction
// index the transition declares.
func (p *PathEnum) scanTransition(tr automaton.Transition, node storage.NodeID) (storage.EdgeCursor, error) {
	if tr.Dir == automaton.Backward {
		return p.engine.ScanBackward(tr.Label, node)
	}
	return p.engine.ScanForward(tr.Label, node)
}

// Reset rewinds to re-enumerate from the previously resolved start. Only
// valid while the upstream row is unchanged; a new row needs Begin.
func (p *PathEnum) Reset() error {
	p.seed()
	return nil
}

// AssignNulls publishes null markers for the end and path variables without
// searching. The frontier is untouched.
func (p *PathEnum) AssignNulls(b *Binding) {
	b.SetNull(p.end)
	if p.pathVar != NoVar {
		b.SetNull(p.pathVar)
	}
}

// Analyze writes the explain-plan line for this operator.
func (p *PathEnum) Analyze(w io.Writer, indent int) {
	pathDesc := ""
	if p.pathVar != NoVar {
		pathDesc = fmt.Sprintf(", path: ?%d", p.pathVar)
	}
	fmt.Fprintf(w, "%sPathEnum(start: %s, end: ?%d%s, %s) [results: %d, index scans: %d]\n",
		strings.Repeat(" ", indent), p.start, p.end, pathDesc, p.auto, p.resultsFound, p.indexScans)
}

// ResultsFound returns how many answers this operator has produced.
func (p *PathEnum) ResultsFound() uint64 { return p.resultsFound }

// IndexScans returns how many index range scans this operator has issued.
func (p *PathEnum) IndexScans() uint64 { return p.indexScans }
