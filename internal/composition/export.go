package composition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Edge is one extends relationship, child to ancestor.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Position is the index of the ancestor in the child's supertype list.
	Position int `json:"position"`
}

// Edges lists every extends relationship: children in sorted order, each
// child's ancestors in declaration order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, name := range g.names {
		for i, sup := range g.nodes[name].Supertypes {
			edges = append(edges, Edge{From: name, To: sup, Position: i})
		}
	}
	return edges
}

// ExportDOT generates a Graphviz DOT representation of the composition.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph composition {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, n := range g.Nodes() {
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
			sanitizeID(n.Name), n.Name, nodeShape(n.Kind), nodeColor(n.Kind)))
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"#3fb950\" label=\"%d\"];\n",
			sanitizeID(e.From), sanitizeID(e.To), e.Position+1))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the composition.
func ExportMermaid(g *Graph) string {
	var b strings.Builder
	b.WriteString("graph BT\n")

	for _, n := range g.Nodes() {
		b.WriteString(fmt.Sprintf("  %s%s\n", sanitizeID(n.Name), mermaidNodeShape(n)))
	}

	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  %s -->|%d| %s\n",
			sanitizeID(e.From), e.Position+1, sanitizeID(e.To)))
	}

	return b.String()
}

type jsonGraph struct {
	Root  string        `json:"root"`
	Nodes []*mixin.Node `json:"nodes"`
	Edges []Edge        `json:"edges"`
	Stats Stats         `json:"stats"`
}

// ExportJSON serializes the composition, its edges, and its stats.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(jsonGraph{
		Root:  g.root,
		Nodes: g.Nodes(),
		Edges: g.Edges(),
		Stats: g.Stats(),
	}, "", "  ")
}

// FormatStats returns a human-readable summary of composition metrics.
func FormatStats(g *Graph) string {
	s := g.Stats()
	var b strings.Builder
	b.WriteString("Composition Statistics\n")
	b.WriteString("======================\n\n")
	b.WriteString(fmt.Sprintf("Root:       %s\n", g.root))
	b.WriteString(fmt.Sprintf("Nodes:      %d total\n", s.TotalNodes))
	b.WriteString(fmt.Sprintf("  Traits:   %d\n", s.TraitCount))
	b.WriteString(fmt.Sprintf("Extends:    %d edges\n", s.TotalEdges))
	b.WriteString(fmt.Sprintf("Max Depth:  %d\n", s.MaxDepth))
	if s.MaxFanIn > 0 {
		b.WriteString(fmt.Sprintf("Max Fan-In: %d (%s)\n", s.MaxFanIn, s.SharedNode))
	}

	if len(s.DiamondNodes) > 0 {
		b.WriteString(fmt.Sprintf("\nDiamond Ancestors: %d\n", len(s.DiamondNodes)))
		for _, name := range s.DiamondNodes {
			b.WriteString(fmt.Sprintf("  %s\n", name))
		}
	}

	return b.String()
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func nodeShape(kind mixin.Kind) string {
	switch kind {
	case mixin.KindBaseClass:
		return "box"
	case mixin.KindTrait:
		return "ellipse"
	default:
		return "box"
	}
}

func nodeColor(kind mixin.Kind) string {
	switch kind {
	case mixin.KindBaseClass:
		return "#1f6feb"
	case mixin.KindTrait:
		return "#8957e5"
	default:
		return "#30363d"
	}
}

func mermaidNodeShape(n *mixin.Node) string {
	switch n.Kind {
	case mixin.KindBaseClass:
		return fmt.Sprintf("[[\"%s\"]]", n.Name)
	case mixin.KindTrait:
		return fmt.Sprintf("([\"%s\"])", n.Name)
	default:
		return fmt.Sprintf("[\"%s\"]", n.Name)
	}
}
