package automaton

// Literal builders for the common single-path shapes. These are conveniences
// for tests and tooling; general regular expressions are compiled to a
// PathAutomaton by the query planner, not here.

// SingleLabel accepts exactly one forward edge with the given label.
func SingleLabel(label string) *PathAutomaton {
	a := New(2, 0)
	a.AddTransition(0, label, Forward, 1)
	a.SetFinal(1)
	return a
}

// SingleLabelStar accepts zero or more forward edges with the given label
// (Kleene star: the start state is final, so the empty path matches).
func SingleLabelStar(label string) *PathAutomaton {
	a := New(1, 0)
	a.AddTransition(0, label, Forward, 0)
	a.SetFinal(0)
	return a
}

// SingleLabelPlus accepts one or more forward edges with the given label.
func SingleLabelPlus(label string) *PathAutomaton {
	a := New(2, 0)
	a.AddTransition(0, label, Forward, 1)
	a.AddTransition(1, label, Forward, 1)
	a.SetFinal(1)
	return a
}

// SingleLabelOptional accepts zero or one forward edge with the given label.
func SingleLabelOptional(label string) *PathAutomaton {
	a := New(2, 0)
	a.AddTransition(0, label, Forward, 1)
	a.SetFinal(0)
	a.SetFinal(1)
	return a
}

// Sequence accepts exactly the given labels in order, all forward.
func Sequence(labels ...string) *PathAutomaton {
	a := New(len(labels)+1, 0)
	for i, l := range labels {
		a.AddTransition(i, l, Forward, i+1)
	}
	a.SetFinal(len(labels))
	return a
}

// Alternation accepts exactly one forward edge whose label is any of the
// given alternatives.
func Alternation(labels ...string) *PathAutomaton {
	a := New(2, 0)
	for _, l := range labels {
		a.AddTransition(0, l, Forward, 1)
	}
	a.SetFinal(1)
	return a
}
