package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

func buildGraph(t *testing.T, decls ...mixin.Node) *composition.Graph {
	t.Helper()
	g, err := composition.Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func diamondDecls(tagField string) []mixin.Node {
	return []mixin.Node{
		{Name: "T1", Kind: mixin.KindTrait,
			Fields: []mixin.Field{{Name: tagField, Type: mixin.FieldString}}},
		{Name: "T2", Kind: mixin.KindTrait, Supertypes: []string{"T1"}},
		{Name: "T3", Kind: mixin.KindTrait, Supertypes: []string{"T1"}},
		{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T2", "T3"}},
	}
}

func TestCompute(t *testing.T) {
	g := buildGraph(t, diamondDecls("tag")...)
	fps := Compute(g)

	if len(fps) != 4 {
		t.Fatalf("expected 4 fingerprints, got %d", len(fps))
	}
	if len(fps["T1"].AncestorHashes) != 0 {
		t.Errorf("expected 0 ancestor hashes for T1, got %d", len(fps["T1"].AncestorHashes))
	}
	if len(fps["T2"].AncestorHashes) != 1 {
		t.Errorf("expected 1 ancestor hash for T2, got %d", len(fps["T2"].AncestorHashes))
	}
	// C1's ancestors are T2, T3, and the shared T1 counted once.
	if len(fps["C1"].AncestorHashes) != 3 {
		t.Errorf("expected 3 ancestor hashes for C1, got %d", len(fps["C1"].AncestorHashes))
	}
	if fps["C1"].CompositeHash == fps["C1"].NodeHash {
		t.Error("composite hash should differ from node hash when ancestors exist")
	}
}

func TestGraphHashDeterminism(t *testing.T) {
	h1 := GraphHash(buildGraph(t, diamondDecls("tag")...))
	h2 := GraphHash(buildGraph(t, diamondDecls("tag")...))
	if h1 != h2 {
		t.Error("graph hashes should be deterministic")
	}
}

func TestGraphHashChangesWhenAncestorChanges(t *testing.T) {
	before := GraphHash(buildGraph(t, diamondDecls("tag")...))
	after := GraphHash(buildGraph(t, diamondDecls("label")...))
	if before == after {
		t.Error("changing a trait field should change the root's graph hash")
	}
}

func TestSiblingChangeDoesNotTouchUnrelatedNode(t *testing.T) {
	fps1 := Compute(buildGraph(t, diamondDecls("tag")...))

	decls := diamondDecls("tag")
	decls[2].Fields = []mixin.Field{{Name: "extra", Type: mixin.FieldInt}} // T3
	fps2 := Compute(buildGraph(t, decls...))

	// T2 does not depend on T3, so its composite must not move.
	if fps1["T2"].CompositeHash != fps2["T2"].CompositeHash {
		t.Error("T2 composite changed when only sibling T3 changed")
	}
	if fps1["C1"].CompositeHash == fps2["C1"].CompositeHash {
		t.Error("root composite should change when any reachable node changes")
	}
}

func TestMixinOrderAffectsGraphHash(t *testing.T) {
	forward := buildGraph(t,
		mixin.Node{Name: "T1", Kind: mixin.KindTrait},
		mixin.Node{Name: "T2", Kind: mixin.KindTrait},
		mixin.Node{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1", "T2"}},
	)
	reversed := buildGraph(t,
		mixin.Node{Name: "T1", Kind: mixin.KindTrait},
		mixin.Node{Name: "T2", Kind: mixin.KindTrait},
		mixin.Node{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T2", "T1"}},
	)
	if GraphHash(forward) == GraphHash(reversed) {
		t.Error("mixin order is semantic and must change the graph hash")
	}
}

func TestScenarioHashes(t *testing.T) {
	hashes, err := ScenarioHashes(catalog.Builtin())
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != catalog.Builtin().Len() {
		t.Fatalf("expected %d hashes, got %d", catalog.Builtin().Len(), len(hashes))
	}
	for name, h := range hashes {
		if h == "" {
			t.Errorf("empty hash for scenario %s", name)
		}
	}
	if hashes["single-trait"] == hashes["diamond"] {
		t.Error("different compositions should hash differently")
	}
}

func TestChangedScenariosFirstRun(t *testing.T) {
	current := map[string]string{"a": "h1", "b": "h2"}
	changed := ChangedScenarios(current, nil)
	if len(changed) != 2 {
		t.Errorf("first run should report all scenarios as changed, got %d", len(changed))
	}
}

func TestChangedScenariosIncremental(t *testing.T) {
	current := map[string]string{
		"a": "h1",
		"b": "h2-changed",
		"c": "h3-new",
	}
	prev := &State{GraphHashes: map[string]string{
		"a": "h1",
		"b": "h2-original",
	}}

	changed := ChangedScenarios(current, prev)
	changedSet := make(map[string]bool)
	for _, name := range changed {
		changedSet[name] = true
	}
	if len(changed) != 2 {
		t.Errorf("expected 2 changed scenarios, got %d", len(changed))
	}
	if !changedSet["b"] {
		t.Error("expected b to be detected as changed")
	}
	if !changedSet["c"] {
		t.Error("expected c to be detected as new")
	}
	if changedSet["a"] {
		t.Error("a should NOT be detected as changed")
	}
}

func TestStatePersistence(t *testing.T) {
	tmpDir := t.TempDir()

	state := NewState()
	state.GraphHashes["diamond"] = "abc123"

	if err := state.Save(tmpDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, stateFileName)); err != nil {
		t.Fatalf("state file not created: %v", err)
	}

	loaded, err := LoadState(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("expected non-nil loaded state")
	}
	if loaded.GraphHashes["diamond"] != "abc123" {
		t.Errorf("expected abc123, got %s", loaded.GraphHashes["diamond"])
	}
}

func TestLoadStateMissing(t *testing.T) {
	state, err := LoadState(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Error("expected nil state for missing file")
	}
}
