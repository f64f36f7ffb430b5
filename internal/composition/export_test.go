package composition

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

func diamondGraph(t *testing.T) *Graph {
	t.Helper()
	return mustBuild(t,
		trait("T1"),
		trait("T2", "T1"),
		trait("T3", "T1"),
		baseClass("C1", "T2", "T3"),
	)
}

func TestGraph_Edges(t *testing.T) {
	g := diamondGraph(t)
	edges := g.Edges()
	if len(edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(edges))
	}
	// Children iterate sorted, ancestors in declaration order.
	first := edges[0]
	if first.From != "C1" || first.To != "T2" || first.Position != 0 {
		t.Errorf("edges[0] = %+v", first)
	}
	second := edges[1]
	if second.From != "C1" || second.To != "T3" || second.Position != 1 {
		t.Errorf("edges[1] = %+v", second)
	}
}

func TestExportDOT(t *testing.T) {
	dot := ExportDOT(diamondGraph(t))

	if !strings.HasPrefix(dot, "digraph composition {") {
		t.Errorf("unexpected DOT prefix: %q", dot[:40])
	}
	if !strings.Contains(dot, "rankdir=BT") {
		t.Error("expected bottom-to-top ranking")
	}
	if !strings.Contains(dot, `"C1" [label="C1" shape=box`) {
		t.Error("expected box shape for the base class")
	}
	if !strings.Contains(dot, `"T1" [label="T1" shape=ellipse`) {
		t.Error("expected ellipse shape for traits")
	}
	if !strings.Contains(dot, `"C1" -> "T2"`) || !strings.Contains(dot, `"C1" -> "T3"`) {
		t.Error("expected extends edges from C1")
	}
	if !strings.Contains(dot, `label="2"`) {
		t.Error("expected 1-based position labels on edges")
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("expected closing brace")
	}
}

func TestExportMermaid(t *testing.T) {
	mm := ExportMermaid(diamondGraph(t))

	if !strings.HasPrefix(mm, "graph BT\n") {
		t.Errorf("unexpected Mermaid prefix: %q", mm[:20])
	}
	if !strings.Contains(mm, `C1[["C1"]]`) {
		t.Error("expected double-bracket shape for the base class")
	}
	if !strings.Contains(mm, `T1(["T1"])`) {
		t.Error("expected stadium shape for traits")
	}
	if !strings.Contains(mm, "C1 -->|1| T2") {
		t.Error("expected labeled extends edge")
	}
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(diamondGraph(t))
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	var decoded struct {
		Root  string       `json:"root"`
		Nodes []mixin.Node `json:"nodes"`
		Edges []Edge       `json:"edges"`
		Stats Stats        `json:"stats"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Root != "C1" {
		t.Errorf("root = %s", decoded.Root)
	}
	if len(decoded.Nodes) != 4 || len(decoded.Edges) != 4 {
		t.Errorf("nodes=%d edges=%d", len(decoded.Nodes), len(decoded.Edges))
	}
	if decoded.Stats.TotalNodes != 4 {
		t.Errorf("stats.TotalNodes = %d", decoded.Stats.TotalNodes)
	}
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(diamondGraph(t))

	for _, want := range []string{
		"Composition Statistics",
		"Root:       C1",
		"Nodes:      4 total",
		"Traits:   3",
		"Max Fan-In: 2 (T1)",
		"Diamond Ancestors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatStats missing %q in:\n%s", want, out)
		}
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("My-Trait.v2"); got != "My_Trait_v2" {
		t.Errorf("sanitizeID = %q", got)
	}
}
