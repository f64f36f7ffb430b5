// Package dispatch answers method lookups against a linearized
// composition: the most derived concrete definition wins, and super calls
// continue the same search from just past the caller's position.
package dispatch

import (
	"sort"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/linearize"
)

// Entry is one resolved method implementation.
type Entry struct {
	Owner    string `json:"owner"`
	Method   string `json:"method"`
	Result   string `json:"result,omitempty"`
	Abstract bool   `json:"abstract,omitempty"`
	// Override reports that a less derived node also declares this method.
	Override bool `json:"override,omitempty"`
}

// Table answers method lookups for one composition. Built once from the
// linearized order; immutable and safe for concurrent readers.
type Table struct {
	order   *linearize.Order
	methods map[string][]Entry // method name -> declarations, most derived first
}

// NewTable collects every method declaration along the resolution order.
func NewTable(g *composition.Graph, order *linearize.Order) *Table {
	t := &Table{order: order, methods: make(map[string][]Entry)}
	for _, name := range order.Resolution() {
		n, ok := g.Node(name)
		if !ok {
			continue
		}
		for _, m := range n.Methods {
			t.methods[m.Name] = append(t.methods[m.Name], Entry{
				Owner:    name,
				Method:   m.Name,
				Result:   m.Result,
				Abstract: m.Abstract,
			})
		}
	}
	for name, chain := range t.methods {
		for i := range chain {
			chain[i].Override = i < len(chain)-1
		}
		t.methods[name] = chain
	}
	return t
}

// Methods returns every declared method name, sorted.
func (t *Table) Methods() []string {
	out := make([]string, 0, len(t.methods))
	for name := range t.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Chain returns every declaration of a method, most derived first,
// abstract markers included.
func (t *Table) Chain(method string) []Entry {
	return append([]Entry(nil), t.methods[method]...)
}

// Resolve returns the most derived concrete definition of a method.
// A method nobody declares fails with ErrNotFound; one declared only
// abstractly fails with ErrAbstractUnimplemented.
func (t *Table) Resolve(method string) (Entry, error) {
	chain := t.methods[method]
	if len(chain) == 0 {
		return Entry{}, errorf(ErrNotFound, "method %s declared nowhere in the composition", method)
	}
	for _, e := range chain {
		if !e.Abstract {
			return e, nil
		}
	}
	return Entry{}, errorf(ErrAbstractUnimplemented, "method %s is abstract in %s and never implemented",
		method, owners(chain))
}

// SuperCall resolves a method the way a super reference inside from
// would: the search starts just past from in the resolution order and
// only a concrete definition satisfies it. With no concrete ancestor
// definition the call fails with ErrNotFound even if abstract markers
// remain above.
func (t *Table) SuperCall(from, method string) (Entry, error) {
	fromPos, ok := t.order.Position(from)
	if !ok {
		return Entry{}, errorf(ErrUnknownNode, "node %s is not part of the composition", from)
	}
	for _, e := range t.methods[method] {
		pos, ok := t.order.Position(e.Owner)
		if !ok || pos >= fromPos {
			continue
		}
		if !e.Abstract {
			return e, nil
		}
	}
	return Entry{}, errorf(ErrNotFound, "no concrete definition of %s above %s", method, from)
}

func owners(chain []Entry) string {
	names := make([]string, len(chain))
	for i, e := range chain {
		names[i] = e.Owner
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
