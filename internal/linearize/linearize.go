// Package linearize derives the canonical total order of a composition:
// the sequence in which node bodies initialize and, read backwards, the
// sequence method resolution searches.
package linearize

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/composition"
)

// Order is the linearization of one composition. Indexing is
// least-derived first: element 0 initializes first and the root comes
// last. Orders are immutable and safe for concurrent readers.
type Order struct {
	graph      *composition.Graph
	names      []string // least-derived first
	resolution []string // most-derived first
	pos        map[string]int
	via        map[string]string // node -> descendant whose list reached it first
}

// Linearize computes the initialization order of a validated graph.
//
// The walk descends each node's supertype list left to right, emits a
// node's ancestors before the node itself, and keeps only the first
// occurrence of every node. A shared ancestor therefore initializes
// exactly once, at the earliest point any path requires it. The reverse
// of this sequence is the most-derived-first method resolution order.
// Pure and deterministic: the same graph always yields the same Order.
func Linearize(g *composition.Graph) *Order {
	o := &Order{
		graph: g,
		names: make([]string, 0, g.Len()),
		pos:   make(map[string]int, g.Len()),
		via:   make(map[string]string, g.Len()),
	}

	seen := make(map[string]bool, g.Len())
	var walk func(name, from string)
	walk = func(name, from string) {
		if seen[name] {
			return
		}
		seen[name] = true
		o.via[name] = from
		n, _ := g.Node(name)
		for _, sup := range n.Supertypes {
			walk(sup, name)
		}
		o.pos[name] = len(o.names)
		o.names = append(o.names, name)
	}
	walk(g.Root().Name, "")

	o.resolution = make([]string, len(o.names))
	for i, name := range o.names {
		o.resolution[len(o.names)-1-i] = name
	}
	return o
}

// Graph returns the composition this order was derived from.
func (o *Order) Graph() *composition.Graph { return o.graph }

// Names returns the initialization order, least-derived first.
func (o *Order) Names() []string {
	return append([]string(nil), o.names...)
}

// Resolution returns the method resolution order, most-derived first.
func (o *Order) Resolution() []string {
	return append([]string(nil), o.resolution...)
}

// Len returns the number of nodes in the order.
func (o *Order) Len() int { return len(o.names) }

// At returns the name at initialization position i.
func (o *Order) At(i int) string { return o.names[i] }

// Position returns a node's initialization position.
func (o *Order) Position(name string) (int, bool) {
	p, ok := o.pos[name]
	return p, ok
}

// Contains reports whether the order includes the named node.
func (o *Order) Contains(name string) bool {
	_, ok := o.pos[name]
	return ok
}

// Via returns the descendant whose supertype list first reached the named
// node during the walk, or "" for the root. It explains why a shared
// ancestor sits where it does.
func (o *Order) Via(name string) (string, bool) {
	v, ok := o.via[name]
	return v, ok
}

// String renders the initialization order as "T1 -> T2 -> C1".
func (o *Order) String() string {
	return strings.Join(o.names, " -> ")
}

// Explain renders one line per node with its position and the path edge
// that fixed it, for diagnostic output.
func (o *Order) Explain() string {
	var b strings.Builder
	for i, name := range o.names {
		note := "composition root"
		if via := o.via[name]; via != "" {
			note = "first reached via " + via
		}
		fmt.Fprintf(&b, "%d. %s  (%s)\n", i+1, name, note)
	}
	return b.String()
}
