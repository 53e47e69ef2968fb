package query

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// NestedLoopJoin pipes every row of lhs through rhs: for each lhs row, rhs
// is (re)started and drained, and each rhs result surfaces as one joined
// row in the shared binding.
//
// When lhs produces no rows at all, rhs is never begun; an always-empty
// stand-in takes its place so Next stays cheap.
type NestedLoopJoin struct {
	lhs         Operator
	originalRHS Operator

	ctx     context.Context
	binding *Binding
	rhs     Operator // originalRHS once lhs has a row, otherwise Empty
}

// NewNestedLoopJoin creates the join. rhs typically reads slots lhs wrote.
func NewNestedLoopJoin(lhs, rhs Operator) *NestedLoopJoin {
	return &NestedLoopJoin{lhs: lhs, originalRHS: rhs}
}

// Begin starts lhs and, if it yields a first row, starts rhs against it.
func (j *NestedLoopJoin) Begin(ctx context.Context, b *Binding) error {
	j.ctx = ctx
	j.binding = b

	if err := j.lhs.Begin(ctx, b); err != nil {
		return err
	}
	ok, err := j.lhs.Next()
	if err != nil {
		return err
	}
	if !ok {
		j.rhs = Empty{}
		return nil
	}
	j.rhs = j.originalRHS
	return j.rhs.Begin(ctx, b)
}

// Next returns the next joined row.
func (j *NestedLoopJoin) Next() (bool, error) {
	for {
		ok, err := j.rhs.Next()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		ok, err = j.lhs.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := j.rhs.Begin(j.ctx, j.binding); err != nil {
			return false, err
		}
	}
}

// Reset rewinds both sides.
func (j *NestedLoopJoin) Reset() error {
	if err := j.lhs.Reset(); err != nil {
		return err
	}
	ok, err := j.lhs.Next()
	if err != nil {
		return err
	}
	if !ok {
		j.rhs = Empty{}
		return nil
	}
	j.rhs = j.originalRHS
	return j.rhs.Begin(j.ctx, j.binding)
}

// AssignNulls nulls the outputs of both sides. The rhs may never have
// begun (empty lhs); passing the binding through keeps that safe.
func (j *NestedLoopJoin) AssignNulls(b *Binding) {
	j.lhs.AssignNulls(b)
	j.originalRHS.AssignNulls(b)
}

// Analyze writes the join and both children, children indented.
func (j *NestedLoopJoin) Analyze(w io.Writer, indent int) {
	fmt.Fprintf(w, "%sNestedLoopJoin(\n", strings.Repeat(" ", indent))
	j.lhs.Analyze(w, indent+2)
	j.originalRHS.Analyze(w, indent+2)
	fmt.Fprintf(w, "%s)\n", strings.Repeat(" ", indent))
}

// Empty is the always-exhausted operator. It stands in for a join side that
// can never produce rows.
type Empty struct{}

// Begin does nothing.
func (Empty) Begin(context.Context, *Binding) error { return nil }

// Next is always exhausted.
func (Empty) Next() (bool, error) { return false, nil }

// Reset does nothing.
func (Empty) Reset() error { return nil }

// AssignNulls does nothing; Empty owns no output slots.
func (Empty) AssignNulls(*Binding) {}

// Analyze writes the placeholder line.
func (Empty) Analyze(w io.Writer, indent int) {
	fmt.Fprintf(w, "%sEmpty\n", strings.Repeat(" ", indent))
}
