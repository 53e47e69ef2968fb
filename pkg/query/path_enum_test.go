package query

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/automaton"
	"github.com/orneryd/bifrost/pkg/storage"
)

// buildGraph creates a memory engine holding the given "from type to"
// triples, creating endpoints on first sight.
func buildGraph(t *testing.T, triples ...[3]string) *storage.MemoryEngine {
	t.Helper()
	engine := storage.NewMemoryEngine()
	seen := map[storage.NodeID]bool{}
	for _, tr := range triples {
		for _, id := range []storage.NodeID{storage.NodeID(tr[0]), storage.NodeID(tr[2])} {
			if !seen[id] {
				require.NoError(t, engine.CreateNode(id))
				seen[id] = true
			}
		}
		require.NoError(t, engine.CreateEdge(&storage.Edge{
			From: storage.NodeID(tr[0]),
			Type: tr[1],
			To:   storage.NodeID(tr[2]),
		}))
	}
	return engine
}

// drain runs the operator to exhaustion and returns the end-variable values
// in emission order.
func drain(t *testing.T, op Operator, b *Binding, end VarID) []string {
	t.Helper()
	var out []string
	for {
		ok, err := op.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		id, ok := b.Get(end)
		require.True(t, ok, "end variable must hold a node after a true Next")
		out = append(out, string(id))
	}
	return out
}

func TestPathEnumKleeneStarOverCycle(t *testing.T) {
	// A -[:knows]-> B -[:knows]-> C -[:knows]-> A (3-cycle)
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "knows", "C"},
		[3]string{"C", "knows", "A"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelStar("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)

	// Empty path first, then BFS order around the cycle, each node once,
	// and termination despite the cycle.
	assert.Equal(t, []string{"A", "B", "C"}, results)
	assert.Equal(t, uint64(3), op.ResultsFound())
}

func TestPathEnumPlusOverCycle(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "knows", "C"},
		[3]string{"C", "knows", "A"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelPlus("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)

	// One-or-more: A only appears after at least one hop (it's reached
	// back around the cycle), and nothing repeats.
	assert.Equal(t, []string{"B", "C", "A"}, results)
}

func TestPathEnumConstantStartAbsent(t *testing.T) {
	engine := buildGraph(t, [3]string{"A", "knows", "B"})
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("ghost"), 0, NoVar, automaton.SingleLabelStar("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	ok, err := op.Next()
	require.NoError(t, err)
	assert.False(t, ok, "missing constant start must exhaust immediately")
}

func TestPathEnumSingleHop(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"A", "knows", "C"},
		[3]string{"A", "likes", "D"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabel("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)
	sort.Strings(results)
	assert.Equal(t, []string{"B", "C"}, results, "only :knows edges qualify")
}

func TestPathEnumDeduplicatesAcrossPathsAndStates(t *testing.T) {
	// Diamond: two distinct paths A->D, plus D reachable at both one and
	// two hops through the sequence automaton's accepting states.
	engine := buildGraph(t,
		[3]string{"A", "a", "B"},
		[3]string{"A", "a", "C"},
		[3]string{"B", "a", "D"},
		[3]string{"C", "a", "D"},
		[3]string{"A", "a", "D"},
	)
	defer engine.Close()

	// one-or-more: D is reachable at hop 1 (direct) and hop 2 (via B or
	// C), pairing it with the accepting state repeatedly.
	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelPlus("a"))
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)
	counts := map[string]int{}
	for _, r := range results {
		counts[r]++
	}
	for node, n := range counts {
		assert.Equal(t, 1, n, "node %s emitted more than once", node)
	}
	sort.Strings(results)
	assert.Equal(t, []string{"B", "C", "D"}, results)
}

func TestPathEnumBackwardTransitions(t *testing.T) {
	// cites edges point B->A, C->B; searching "what cites me,
	// transitively" from A follows them in reverse.
	engine := buildGraph(t,
		[3]string{"B", "cites", "A"},
		[3]string{"C", "cites", "B"},
	)
	defer engine.Close()

	auto := automaton.New(1, 0)
	auto.AddTransition(0, "cites", automaton.Backward, 0)
	auto.SetFinal(0)

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, auto)
	require.NoError(t, op.Begin(context.Background(), b))

	assert.Equal(t, []string{"A", "B", "C"}, drain(t, op, b, 0))
}

func TestPathEnumDirectionSymmetry(t *testing.T) {
	// (A)=[:a*]=>(?x) on a chain, versus the rewritten reverse form of
	// (?x)=[:a*]=>(C): both enumerate the same chain membership.
	engine := buildGraph(t,
		[3]string{"A", "a", "B"},
		[3]string{"B", "a", "C"},
	)
	defer engine.Close()

	star := automaton.SingleLabelStar("a")

	b := NewBinding(1)
	forward := NewPathEnum(engine, Constant("A"), 0, NoVar, star)
	require.NoError(t, forward.Begin(context.Background(), b))
	forwardResults := drain(t, forward, b, 0)
	sort.Strings(forwardResults)

	// Anchor at the end: forward search from C over the reversed automaton.
	b2 := NewBinding(1)
	backward := NewPathEnum(engine, Constant("C"), 0, NoVar, star.Reverse())
	require.NoError(t, backward.Begin(context.Background(), b2))
	backwardResults := drain(t, backward, b2, 0)
	sort.Strings(backwardResults)

	assert.Equal(t, []string{"A", "B", "C"}, forwardResults)
	assert.Equal(t, []string{"A", "B", "C"}, backwardResults)
}

func TestPathEnumReverseSingleLabel(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "a", "B"},
		[3]string{"X", "a", "B"},
		[3]string{"B", "a", "Y"},
	)
	defer engine.Close()

	// (?x)-[:a]->(B) rewritten: reverse automaton anchored at B.
	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("B"), 0, NoVar, automaton.SingleLabel("a").Reverse())
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)
	sort.Strings(results)
	assert.Equal(t, []string{"A", "X"}, results)
}

func TestPathEnumSequenceAutomaton(t *testing.T) {
	// knows . works_with, exactly two hops.
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "works_with", "C"},
		[3]string{"B", "knows", "D"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.Sequence("knows", "works_with"))
	require.NoError(t, op.Begin(context.Background(), b))

	assert.Equal(t, []string{"C"}, drain(t, op, b, 0))
}

func TestPathEnumVariableStart(t *testing.T) {
	engine := buildGraph(t, [3]string{"A", "knows", "B"})
	defer engine.Close()

	const (
		varStart VarID = iota
		varEnd
	)
	b := NewBinding(2)
	b.Set(varStart, "A")

	op := NewPathEnum(engine, Variable(varStart), varEnd, NoVar, automaton.SingleLabel("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	assert.Equal(t, []string{"B"}, drain(t, op, b, varEnd))
}

func TestPathEnumVariableStartUnsetPanics(t *testing.T) {
	engine := buildGraph(t, [3]string{"A", "knows", "B"})
	defer engine.Close()

	b := NewBinding(2)
	op := NewPathEnum(engine, Variable(0), 1, NoVar, automaton.SingleLabel("knows"))

	assert.Panics(t, func() {
		_ = op.Begin(context.Background(), b)
	}, "reading an unset slot is a plan-construction bug")
}

func TestPathEnumReset(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "knows", "C"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelPlus("knows"))
	require.NoError(t, op.Begin(context.Background(), b))
	first := drain(t, op, b, 0)

	require.NoError(t, op.Reset())
	second := drain(t, op, b, 0)

	assert.Equal(t, first, second, "reset must replay the same enumeration")
}

func TestPathEnumAssignNulls(t *testing.T) {
	engine := buildGraph(t, [3]string{"A", "knows", "B"})
	defer engine.Close()

	const (
		varEnd VarID = iota
		varPath
	)
	b := NewBinding(2)
	op := NewPathEnum(engine, Constant("A"), varEnd, varPath, automaton.SingleLabel("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	op.AssignNulls(b)
	assert.True(t, b.IsNull(varEnd))
	assert.True(t, b.IsNull(varPath))

	// Valid before Begin too: an optional context may null a side that
	// never ran.
	b2 := NewBinding(2)
	fresh := NewPathEnum(engine, Constant("A"), varEnd, varPath, automaton.SingleLabel("knows"))
	fresh.AssignNulls(b2)
	assert.True(t, b2.IsNull(varEnd))
	assert.True(t, b2.IsNull(varPath))
}

func TestPathEnumPathVariable(t *testing.T) {
	engine := buildGraph(t, [3]string{"A", "knows", "B"})
	defer engine.Close()

	const (
		varEnd VarID = iota
		varPath
	)
	b := NewBinding(2)
	op := NewPathEnum(engine, Constant("A"), varEnd, varPath, automaton.SingleLabelStar("knows"))
	require.NoError(t, op.Begin(context.Background(), b))

	// Empty path answer: end bound to the anchor, path variable null.
	ok, err := op.Next()
	require.NoError(t, err)
	require.True(t, ok)
	end, _ := b.Get(varEnd)
	assert.Equal(t, storage.NodeID("A"), end)
	assert.True(t, b.IsNull(varPath))

	// Hop answer: path variable holds the connected node.
	ok, err = op.Next()
	require.NoError(t, err)
	require.True(t, ok)
	end, _ = b.Get(varEnd)
	assert.Equal(t, storage.NodeID("B"), end)
	path, bound := b.Get(varPath)
	require.True(t, bound)
	assert.Equal(t, storage.NodeID("B"), path)
}

func TestPathEnumContextCancellation(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "knows", "C"},
	)
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelPlus("knows"))
	require.NoError(t, op.Begin(ctx, b))

	cancel()
	_, err := op.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPathEnumAnalyze(t *testing.T) {
	engine := buildGraph(t,
		[3]string{"A", "knows", "B"},
		[3]string{"B", "knows", "C"},
	)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("A"), 0, NoVar, automaton.SingleLabelStar("knows"))
	require.NoError(t, op.Begin(context.Background(), b))
	drain(t, op, b, 0)

	var buf bytes.Buffer
	op.Analyze(&buf, 2)

	out := buf.String()
	assert.Contains(t, out, "PathEnum(start: A, end: ?0")
	assert.Contains(t, out, "results: 3")
	assert.Contains(t, out, "index scans:")
	assert.Equal(t, "  ", out[:2], "indent prefixes the line")
	assert.Equal(t, uint64(3), op.ResultsFound())
	assert.Greater(t, op.IndexScans(), uint64(0))
}

func TestPathEnumTerminationBound(t *testing.T) {
	// Dense cycle: every node points at every other with one label. The
	// visited set caps expansions at |nodes| x |states|.
	nodes := []string{"n0", "n1", "n2", "n3", "n4"}
	var triples [][3]string
	for _, a := range nodes {
		for _, b := range nodes {
			if a != b {
				triples = append(triples, [3]string{a, "e", b})
			}
		}
	}
	engine := buildGraph(t, triples...)
	defer engine.Close()

	b := NewBinding(1)
	op := NewPathEnum(engine, Constant("n0"), 0, NoVar, automaton.SingleLabelStar("e"))
	require.NoError(t, op.Begin(context.Background(), b))

	results := drain(t, op, b, 0)
	assert.Len(t, results, len(nodes))
	// One state, five nodes: at most five expansions, one scan each.
	assert.LessOrEqual(t, op.IndexScans(), uint64(len(nodes)))
}
