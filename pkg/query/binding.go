// Package query implements Bifrost's pull-based query operators.
//
// Operators form a pipeline over a shared Binding row: each operator reads
// the variable slots its inputs resolved and writes the slots it produces.
// The caller drives the pipeline one result at a time through Next.
package query

import (
	"fmt"

	"github.com/orneryd/bifrost/pkg/storage"
)

// VarID is the index of a variable slot in a Binding.
type VarID int

// NoVar marks an absent optional variable (e.g. a path pattern without a
// path variable).
const NoVar VarID = -1

// valueKind tracks what a slot currently holds.
type valueKind uint8

const (
	kindUnset valueKind = iota
	kindNull
	kindNode
)

type value struct {
	kind valueKind
	node storage.NodeID
}

// Binding is the mutable row of variable assignments shared across an
// operator pipeline. Slots distinguish three states: unset (never written),
// null (written by an optional pattern that produced no match), and a node
// value.
type Binding struct {
	slots []value
}

// NewBinding creates a binding with n variable slots, all unset.
func NewBinding(n int) *Binding {
	return &Binding{slots: make([]value, n)}
}

// Size returns the number of slots.
func (b *Binding) Size() int { return len(b.slots) }

// Set assigns a node value to a slot.
func (b *Binding) Set(v VarID, id storage.NodeID) {
	b.slots[v] = value{kind: kindNode, node: id}
}

// SetNull assigns the null marker to a slot.
func (b *Binding) SetNull(v VarID) {
	b.slots[v] = value{kind: kindNull}
}

// Get returns the node value of a slot. ok is false when the slot is null
// or was never set; use IsSet to tell the two apart.
func (b *Binding) Get(v VarID) (id storage.NodeID, ok bool) {
	s := b.slots[v]
	return s.node, s.kind == kindNode
}

// IsSet reports whether the slot has been written at all (node or null).
func (b *Binding) IsSet(v VarID) bool {
	return b.slots[v].kind != kindUnset
}

// IsNull reports whether the slot holds the null marker.
func (b *Binding) IsNull(v VarID) bool {
	return b.slots[v].kind == kindNull
}

// Identity names one endpoint of a path pattern: either a fixed node ID or
// a variable slot resolved from the binding when the operator begins.
type Identity struct {
	isVar bool
	v     VarID
	node  storage.NodeID
}

// Constant returns an identity fixed to the given node.
func Constant(id storage.NodeID) Identity {
	return Identity{node: id}
}

// Variable returns an identity resolved from a binding slot at Begin time.
func Variable(v VarID) Identity {
	return Identity{isVar: true, v: v}
}

// IsVariable reports whether the identity is a slot reference.
func (i Identity) IsVariable() bool { return i.isVar }

// resolve returns the concrete node ID for this identity. Reading an unset
// slot is a plan-construction bug and panics.
func (i Identity) resolve(b *Binding) storage.NodeID {
	if !i.isVar {
		return i.node
	}
	id, ok := b.Get(i.v)
	if !ok {
		panic(fmt.Sprintf("query: variable ?%d read before assignment; broken plan", i.v))
	}
	return id
}

// String describes the identity for plan diagnostics.
func (i Identity) String() string {
	if i.isVar {
		return fmt.Sprintf("?%d", i.v)
	}
	return string(i.node)
}
