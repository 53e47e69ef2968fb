// Package automaton defines the finite-state acceptor that drives property
// path evaluation in Bifrost.
//
// A PathAutomaton is compiled from a path regular expression by the query
// planner and consumed here as a finished artifact: states, a start state, a
// set of final (accepting) states, and labeled transitions. Each transition
// additionally carries a traversal direction, telling the evaluator which
// edge index to consult (forward: type+from, backward: type+to).
//
// Example:
//
//	// Automaton for (start)-[:KNOWS*]->(?x) — Kleene star, so the start
//	// state is final and the empty path matches.
//	a := automaton.SingleLabelStar("KNOWS")
//
//	// Automaton for (?x)-[:KNOWS*]->(end): rewrite to a forward search
//	// from the anchored end over the reversed automaton.
//	rev := a.Reverse()
package automaton

import (
	"fmt"
	"sort"
	"strings"
)

// Direction tells the evaluator which edge index a transition traverses.
type Direction uint8

const (
	// Forward follows stored edges from their start node to their end node.
	Forward Direction = iota
	// Backward follows stored edges from their end node to their start node.
	Backward
)

// String returns "forward" or "backward".
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Transition is one labeled, directed move between automaton states.
type Transition struct {
	Label string
	Dir   Direction
	To    int
}

// PathAutomaton is the acceptor for a path regular expression.
//
// States are dense integers in [0, NumStates). The zero value is not usable;
// construct with New and AddTransition/SetFinal, or use one of the literal
// builders below.
type PathAutomaton struct {
	numStates   int
	start       int
	final       map[int]struct{}
	transitions [][]Transition
}

// New creates an automaton with numStates states, starting at state start,
// with no transitions and no final states.
func New(numStates, start int) *PathAutomaton {
	if numStates <= 0 || start < 0 || start >= numStates {
		panic(fmt.Sprintf("automaton: invalid states=%d start=%d", numStates, start))
	}
	return &PathAutomaton{
		numStates:   numStates,
		start:       start,
		final:       make(map[int]struct{}),
		transitions: make([][]Transition, numStates),
	}
}

// NumStates returns the number of automaton states.
func (a *PathAutomaton) NumStates() int { return a.numStates }

// Start returns the start state.
func (a *PathAutomaton) Start() int { return a.start }

// AddTransition adds a labeled transition from state from to state to.
func (a *PathAutomaton) AddTransition(from int, label string, dir Direction, to int) {
	if from < 0 || from >= a.numStates || to < 0 || to >= a.numStates {
		panic(fmt.Sprintf("automaton: transition %d->%d out of range", from, to))
	}
	a.transitions[from] = append(a.transitions[from], Transition{Label: label, Dir: dir, To: to})
}

// SetFinal marks state as accepting.
func (a *PathAutomaton) SetFinal(state int) {
	if state < 0 || state >= a.numStates {
		panic(fmt.Sprintf("automaton: final state %d out of range", state))
	}
	a.final[state] = struct{}{}
}

// IsFinal reports whether state is accepting.
func (a *PathAutomaton) IsFinal(state int) bool {
	_, ok := a.final[state]
	return ok
}

// StartIsFinal reports whether the start state accepts, i.e. whether the
// empty path matches and the anchor node itself is a result.
func (a *PathAutomaton) StartIsFinal() bool {
	return a.IsFinal(a.start)
}

// TransitionsFrom returns the outgoing transitions of state. The returned
// slice is owned by the automaton and must not be mutated.
func (a *PathAutomaton) TransitionsFrom(state int) []Transition {
	if state < 0 || state >= a.numStates {
		return nil
	}
	return a.transitions[state]
}

// Reverse returns the automaton recognizing the reversal of the language,
// with every transition's direction inverted and endpoints swapped.
//
// This is the direction-duality rewrite: a pattern anchored at its end node
// is evaluated as a forward search from that anchor over Reverse().
// Reversal of an automaton with multiple final states introduces a fresh
// start state with epsilon-free copies of each final state's reversed
// incoming transitions; since final states here are reversed into start
// candidates, we instead add one extra state wired to all of them.
func (a *PathAutomaton) Reverse() *PathAutomaton {
	// Extra state acts as the unified reversed start.
	rev := New(a.numStates+1, a.numStates)
	rev.SetFinal(a.start)

	flip := func(d Direction) Direction {
		if d == Forward {
			return Backward
		}
		return Forward
	}

	for from, ts := range a.transitions {
		for _, t := range ts {
			rev.AddTransition(t.To, t.Label, flip(t.Dir), from)
			if a.IsFinal(t.To) {
				rev.AddTransition(rev.start, t.Label, flip(t.Dir), from)
			}
		}
	}
	if a.StartIsFinal() {
		rev.SetFinal(rev.start)
	}
	return rev
}

// String returns a compact one-line summary, used by operator Analyze output.
func (a *PathAutomaton) String() string {
	var finals []string
	for s := range a.final {
		finals = append(finals, fmt.Sprintf("%d", s))
	}
	transitions := 0
	labels := make(map[string]struct{})
	for _, ts := range a.transitions {
		transitions += len(ts)
		for _, t := range ts {
			labels[t.Label] = struct{}{}
		}
	}
	var ls []string
	for l := range labels {
		ls = append(ls, l)
	}
	sort.Strings(finals)
	sort.Strings(ls)
	return fmt.Sprintf("automaton(states: %d, start: %d, final: {%s}, transitions: %d, labels: [%s])",
		a.numStates, a.start, strings.Join(finals, " "), transitions, strings.Join(ls, " "))
}
