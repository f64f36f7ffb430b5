package construct

import (
	"fmt"
	"sort"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Instance is the flat field state one construction run builds up. Every
// field declared anywhere in the composition lives here under its own
// name; a field reads as its declared default until assigned.
type Instance struct {
	root   string
	types  map[string]mixin.FieldType
	owners map[string]string
	values map[string]mixin.Value
}

func newInstance(g *composition.Graph) *Instance {
	in := &Instance{
		root:   g.Root().Name,
		types:  make(map[string]mixin.FieldType),
		owners: make(map[string]string),
		values: make(map[string]mixin.Value),
	}
	for _, n := range g.Nodes() {
		for _, f := range n.Fields {
			in.types[f.Name] = f.Type
			in.owners[f.Name] = n.Name
		}
	}
	return in
}

// Root returns the name of the constructed class.
func (in *Instance) Root() string { return in.root }

// Has reports whether the composition declares the named field.
func (in *Instance) Has(field string) bool {
	_, ok := in.types[field]
	return ok
}

// Owner returns the node that declares the named field.
func (in *Instance) Owner(field string) (string, bool) {
	o, ok := in.owners[field]
	return o, ok
}

// Get returns the field's current value: the declared default until an
// initializer assigns it.
func (in *Instance) Get(field string) (mixin.Value, bool) {
	t, ok := in.types[field]
	if !ok {
		return mixin.Value{}, false
	}
	if v, ok := in.values[field]; ok {
		return v, true
	}
	return mixin.DefaultValue(t), true
}

// Assigned reports whether an initializer has written the field.
func (in *Instance) Assigned(field string) bool {
	_, ok := in.values[field]
	return ok
}

func (in *Instance) set(field string, v mixin.Value) error {
	t, ok := in.types[field]
	if !ok {
		return errorf(ErrUnknownField, "field %s declared nowhere in %s", field, in.root)
	}
	if v.Kind != t {
		return errorf(ErrFieldType, "field %s is %s, not %s", field, t, v.Kind)
	}
	in.values[field] = v
	return nil
}

// Fields returns the declared field names, sorted.
func (in *Instance) Fields() []string {
	out := make([]string, 0, len(in.types))
	for name := range in.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Builder is handed to each initializer callback. It reads and writes the
// shared field state and appends trace events attributed to the node
// whose initializer is running. The first field misuse aborts the run.
type Builder struct {
	node  string
	inst  *Instance
	trace *Trace
	err   error
}

// Node returns the node whose initializer is running.
func (b *Builder) Node() string { return b.node }

// Get reads a field, observing the declared default before its owning
// initializer assigns it.
func (b *Builder) Get(field string) mixin.Value {
	v, ok := b.inst.Get(field)
	if !ok && b.err == nil {
		b.err = errorf(ErrUnknownField, "initializer of %s reads undeclared field %s", b.node, field)
	}
	return v
}

// Set writes a field.
func (b *Builder) Set(field string, v mixin.Value) {
	if err := b.inst.set(field, v); err != nil && b.err == nil {
		b.err = fmt.Errorf("initializer of %s: %w", b.node, err)
	}
}

// Notef appends a trace event "In <node>: <msg>".
func (b *Builder) Notef(format string, args ...any) {
	b.trace.Append(b.node, fmt.Sprintf("In %s: %s", b.node, fmt.Sprintf(format, args...)))
}

// Observe appends the field's current value as "In <node>: <field>=<value>".
func (b *Builder) Observe(field string) {
	b.Notef("%s=%s", field, b.Get(field))
}

// Assign observes the field, writes it, and observes it again: the
// two-events-per-assignment protocol initialization traces assert on.
func (b *Builder) Assign(field string, v mixin.Value) {
	b.Observe(field)
	b.Set(field, v)
	b.Observe(field)
}
