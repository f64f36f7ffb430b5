package catalog

import (
	"strings"
	"testing"

	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

func TestBuiltinScenariosProduceDeclaredOutcomes(t *testing.T) {
	for _, s := range Builtin().All() {
		t.Run(s.Name, func(t *testing.T) {
			out, err := Execute(s)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}

			if len(out.Order) != len(s.WantOrder) {
				t.Fatalf("order = %v, want %v", out.Order, s.WantOrder)
			}
			for i := range s.WantOrder {
				if out.Order[i] != s.WantOrder[i] {
					t.Fatalf("order = %v, want %v", out.Order, s.WantOrder)
				}
			}

			if s.WantTrace != "" {
				got := strings.Join(out.Trace, ";")
				if got != s.WantTrace {
					t.Errorf("trace = %q, want %q", got, s.WantTrace)
				}
			}

			// Resolution is the initialization order reversed.
			for i := range out.Order {
				if out.Resolution[i] != out.Order[len(out.Order)-1-i] {
					t.Errorf("resolution = %v is not reversed order %v", out.Resolution, out.Order)
					break
				}
			}
		})
	}
}

func TestBuiltinScenarioRoster(t *testing.T) {
	r := Builtin()
	want := []string{
		"collecting-list",
		"diamond",
		"layered-counter",
		"optional-owner",
		"override-chain",
		"single-trait",
		"trait-extends-trait",
		"two-traits",
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if r.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(want))
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("missing")
	if err == nil {
		t.Fatal("Get(missing) succeeded")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("err %q does not name the scenario", err)
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(Scenario{Name: "s", Description: "first"})
	r.Register(Scenario{Name: "s", Description: "second"})

	s, err := r.Get("s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Description != "second" {
		t.Errorf("Description = %q, want %q", s.Description, "second")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestExecuteReportsFinalState(t *testing.T) {
	s, err := Builtin().Get("diamond")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	out, err := Execute(s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Root != "C1" {
		t.Errorf("Root = %s, want C1", out.Root)
	}
	if out.FinalState["tag"] != "T3" {
		t.Errorf("final tag = %q, want T3 (last mixin wins)", out.FinalState["tag"])
	}
}

func TestExecuteRejectsInvalidDeclarations(t *testing.T) {
	s := Scenario{
		Name: "broken",
		Declarations: []mixin.Node{
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"Ghost"}},
		},
	}
	_, err := Execute(s)
	if err == nil {
		t.Fatal("Execute succeeded with undeclared supertype")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("err %q does not name the scenario", err)
	}
}
