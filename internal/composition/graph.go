// Package composition validates declared class and trait hierarchies and
// stores them as immutable graphs. A valid graph has exactly one base
// class, resolves every supertype reference, is acyclic, and reaches every
// declared node from the root. Linearization and dispatch are derived from
// the graph by their own packages.
package composition

import (
	"sort"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Graph is a validated composition: one base class plus every trait
// reachable from it. Graphs are immutable after Build and safe for
// concurrent readers.
type Graph struct {
	root  string
	nodes map[string]*mixin.Node
	names []string // sorted for deterministic iteration
}

// Build validates a set of declarations and returns the composition graph.
// Validation runs in a fixed sequence so a malformed input always fails
// with the same error: declaration shape, duplicate names, root
// cardinality, supertype references, field ownership, cycles,
// connectivity. The input is copied; later mutation of decls cannot reach
// the returned graph.
func Build(decls []mixin.Node) (*Graph, error) {
	if len(decls) == 0 {
		return nil, errorf(ErrMissingRoot, "no nodes declared")
	}

	nodes := make(map[string]*mixin.Node, len(decls))
	var roots []string
	for i := range decls {
		d := &decls[i]
		if d.Name == "" {
			return nil, errorf(ErrInvalidNode, "declaration %d has no name", i)
		}
		if d.Kind != mixin.KindBaseClass && d.Kind != mixin.KindTrait {
			return nil, errorf(ErrInvalidNode, "node %s has unknown kind %q", d.Name, d.Kind)
		}
		if err := checkMembers(d); err != nil {
			return nil, err
		}
		if _, ok := nodes[d.Name]; ok {
			return nil, errorf(ErrDuplicateNode, "node %s declared twice", d.Name)
		}
		nodes[d.Name] = d.Clone()
		if d.Kind == mixin.KindBaseClass {
			roots = append(roots, d.Name)
		}
	}

	switch {
	case len(roots) == 0:
		return nil, errorf(ErrMissingRoot, "no base class declared")
	case len(roots) > 1:
		sort.Strings(roots)
		return nil, errorf(ErrMissingRoot, "multiple base classes: %s", strings.Join(roots, ", "))
	}

	g := &Graph{root: roots[0], nodes: nodes}
	for name := range nodes {
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)

	if err := g.checkReferences(); err != nil {
		return nil, err
	}
	if err := g.checkFieldOwnership(); err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	if err := g.checkConnected(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkMembers rejects in-node duplicate field or method declarations.
func checkMembers(n *mixin.Node) error {
	fields := make(map[string]bool, len(n.Fields))
	for _, f := range n.Fields {
		if f.Name == "" {
			return errorf(ErrInvalidNode, "node %s declares an unnamed field", n.Name)
		}
		if fields[f.Name] {
			return errorf(ErrInvalidNode, "node %s declares field %s twice", n.Name, f.Name)
		}
		fields[f.Name] = true
	}
	methods := make(map[string]bool, len(n.Methods))
	for _, m := range n.Methods {
		if m.Name == "" {
			return errorf(ErrInvalidNode, "node %s declares an unnamed method", n.Name)
		}
		if methods[m.Name] {
			return errorf(ErrInvalidNode, "node %s declares method %s twice", n.Name, m.Name)
		}
		methods[m.Name] = true
	}
	return nil
}

// checkReferences verifies every supertype reference resolves and that no
// supertype list mentions the same ancestor twice.
func (g *Graph) checkReferences() error {
	for _, name := range g.names {
		n := g.nodes[name]
		listed := make(map[string]bool, len(n.Supertypes))
		for _, s := range n.Supertypes {
			if _, ok := g.nodes[s]; !ok {
				return errorf(ErrUnknownAncestor, "node %s extends undeclared %s", name, s)
			}
			if listed[s] {
				return errorf(ErrDuplicateMixin, "node %s mixes in %s twice", name, s)
			}
			listed[s] = true
		}
	}
	return nil
}

// checkFieldOwnership enforces the flat field namespace: a field name is
// declared by at most one node in the composition, so a runtime read is
// never ambiguous.
func (g *Graph) checkFieldOwnership() error {
	owner := make(map[string]string)
	for _, name := range g.names {
		for _, f := range g.nodes[name].Fields {
			if prev, ok := owner[f.Name]; ok {
				return errorf(ErrDuplicateField, "field %s declared by both %s and %s", f.Name, prev, name)
			}
			owner[f.Name] = name
		}
	}
	return nil
}

// checkAcyclic runs a three-state depth-first search over supertype edges
// and reports the first cycle with its witness path. Iteration order is
// sorted, so the same malformed graph always names the same cycle.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0 // unvisited
		gray  = 1 // in progress
		black = 2 // done
	)
	state := make(map[string]int, len(g.nodes))
	var path []string
	var witness []string

	var dfs func(name string) bool
	dfs = func(name string) bool {
		if state[name] == black {
			return false
		}
		if state[name] == gray {
			start := 0
			for i := len(path) - 1; i >= 0; i-- {
				if path[i] == name {
					start = i
					break
				}
			}
			witness = append(append(witness, path[start:]...), name)
			return true
		}
		state[name] = gray
		path = append(path, name)
		for _, next := range g.nodes[name].Supertypes {
			if dfs(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		state[name] = black
		return false
	}

	for _, name := range g.names {
		if state[name] == white && dfs(name) {
			return cycleError(witness)
		}
	}
	return nil
}

// checkConnected verifies every declared node is reachable from the root
// through supertype references. Undeclared leftovers would otherwise never
// appear in a linearization.
func (g *Graph) checkConnected() error {
	reached := make(map[string]bool, len(g.nodes))
	var visit func(name string)
	visit = func(name string) {
		if reached[name] {
			return
		}
		reached[name] = true
		for _, s := range g.nodes[name].Supertypes {
			visit(s)
		}
	}
	visit(g.root)

	var orphans []string
	for _, name := range g.names {
		if !reached[name] {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		return errorf(ErrDisconnected, "not reachable from %s: %s", g.root, strings.Join(orphans, ", "))
	}
	return nil
}

// Root returns the base class node.
func (g *Graph) Root() *mixin.Node { return g.nodes[g.root] }

// Node returns the named node.
func (g *Graph) Node(name string) (*mixin.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns all node names in sorted order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Nodes returns all nodes sorted by name.
func (g *Graph) Nodes() []*mixin.Node {
	out := make([]*mixin.Node, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of nodes in the composition.
func (g *Graph) Len() int { return len(g.nodes) }

// Describe renders every declaration in source form, root last.
func (g *Graph) Describe() string {
	var lines []string
	for _, name := range g.names {
		if name == g.root {
			continue
		}
		lines = append(lines, g.nodes[name].Describe())
	}
	lines = append(lines, g.nodes[g.root].Describe())
	return strings.Join(lines, "\n")
}
