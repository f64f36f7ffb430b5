// Package mixin defines the declarative model for mixin compositions: the
// class and trait declarations, their ordered extension lists, and the
// fields and methods each declares. The model is plain data; validation
// lives in the composition package and ordering in the linearize package.
package mixin

import (
	"fmt"
	"strings"
)

// Kind classifies a declared node.
type Kind string

const (
	// KindBaseClass marks the single composition root. Exactly one node per
	// composition carries this kind.
	KindBaseClass Kind = "base_class"
	// KindTrait marks a mixable trait.
	KindTrait Kind = "trait"
)

// Node is one declared class or trait.
type Node struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Supertypes lists direct ancestors in declaration order. For the base
	// class this is the mixed-in trait list; for a trait, the traits it
	// itself extends.
	Supertypes []string `json:"supertypes,omitempty"`
	Fields     []Field  `json:"fields,omitempty"`
	Methods    []Method `json:"methods,omitempty"`
	Doc        string   `json:"doc,omitempty"`
}

// Field is a mutable slot declared by exactly one node. Its type determines
// the default observed by reads that happen before the owning node's
// initializer assigns it.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Method is a named member a node declares. Abstract methods carry no
// result and must be overridden somewhere more derived to be callable.
type Method struct {
	Name     string `json:"name"`
	Abstract bool   `json:"abstract,omitempty"`
	Result   string `json:"result,omitempty"`
}

// Method returns the declaration of the named method on this node.
func (n *Node) Method(name string) (Method, bool) {
	for _, m := range n.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// Field returns the declaration of the named field on this node.
func (n *Node) Field(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy of the node. Graphs copy their input so later
// mutation of the caller's declarations cannot reach a built graph.
func (n *Node) Clone() *Node {
	c := &Node{Name: n.Name, Kind: n.Kind, Doc: n.Doc}
	if len(n.Supertypes) > 0 {
		c.Supertypes = append([]string(nil), n.Supertypes...)
	}
	if len(n.Fields) > 0 {
		c.Fields = append([]Field(nil), n.Fields...)
	}
	if len(n.Methods) > 0 {
		c.Methods = append([]Method(nil), n.Methods...)
	}
	return c
}

// Describe renders the declaration in source form, e.g.
// "class C1 extends T1 with T2" or "trait T2".
func (n *Node) Describe() string {
	var b strings.Builder
	switch n.Kind {
	case KindBaseClass:
		b.WriteString("class ")
	case KindTrait:
		b.WriteString("trait ")
	default:
		fmt.Fprintf(&b, "%s ", n.Kind)
	}
	b.WriteString(n.Name)
	for i, s := range n.Supertypes {
		if i == 0 {
			b.WriteString(" extends ")
		} else {
			b.WriteString(" with ")
		}
		b.WriteString(s)
	}
	return b.String()
}
