package query

import (
	"context"
	"io"
)

// Operator is the contract every piped query operator implements.
//
// The lifecycle is Begin, zero or more Next calls until one returns false,
// and optionally Reset to re-enumerate for the same upstream row. Operators
// are single-threaded and pull-based: they make progress only inside Next
// and never suspend mid-step.
type Operator interface {
	// Begin initializes the operator for the current upstream row. It may
	// be called again for later rows; each call re-initializes private
	// state without disturbing unrelated binding slots. The context is the
	// borrowed execution context of the whole pipeline and carries
	// cooperative cancellation.
	Begin(ctx context.Context, b *Binding) error

	// Next advances to the next result. true means a new result is
	// visible in the binding; (false, nil) means exhausted for the
	// current row. Storage faults propagate unmodified as the error.
	Next() (bool, error)

	// Reset rewinds the operator to re-enumerate the same upstream row
	// from scratch. Only valid between Begin calls for the same row.
	Reset() error

	// AssignNulls writes null markers to the operator's output slots in b
	// without searching, for optional-pattern semantics. It must work even
	// on an operator that was never begun: an outer context nulls a side
	// that produced no rows.
	AssignNulls(b *Binding)

	// Analyze writes an indented human-readable description of the
	// operator and its accumulated statistics. Diagnostic only.
	Analyze(w io.Writer, indent int)
}
