package catalog

import (
	"github.com/efebarandurmaz/mixdown/internal/construct"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Builtin returns a registry preloaded with the canonical scenarios.
// The first four pin the linearization rules one feature at a time;
// the rest exercise field layering, method overrides, and the
// non-scalar field kinds.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(singleTrait())
	r.Register(twoTraits())
	r.Register(traitExtendsTrait())
	r.Register(diamond())
	r.Register(overrideChain())
	r.Register(layeredCounter())
	r.Register(collectingList())
	r.Register(optionalOwner())
	return r
}

func singleTrait() Scenario {
	return Scenario{
		Name:        "single-trait",
		Description: "a base class mixing in one trait; trait fields initialize first",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "x", Type: mixin.FieldInt}}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1"},
				Fields: []mixin.Field{{Name: "y", Type: mixin.FieldInt}}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": assignInt("x", 1),
			"C1": assignInt("y", 2),
		},
		WantOrder: []string{"T1", "C1"},
		WantTrace: "Creating C1;In T1: x=0;In T1: x=1;In C1: y=0;In C1: y=2;Created C1",
	}
}

func twoTraits() Scenario {
	return Scenario{
		Name:        "two-traits",
		Description: "two unrelated traits initialize left to right before the class body",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "x", Type: mixin.FieldInt}}},
			{Name: "T2", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "y", Type: mixin.FieldInt}}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1", "T2"},
				Fields: []mixin.Field{{Name: "z", Type: mixin.FieldInt}}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": assignInt("x", 1),
			"T2": assignInt("y", 2),
			"C1": assignInt("z", 3),
		},
		WantOrder: []string{"T1", "T2", "C1"},
		WantTrace: "Creating C1;In T1: x=0;In T1: x=1;In T2: y=0;In T2: y=2;In C1: z=0;In C1: z=3;Created C1",
	}
}

func traitExtendsTrait() Scenario {
	return Scenario{
		Name:        "trait-extends-trait",
		Description: "a trait's own supertype initializes before it, and is not repeated when mixed in again",
		Declarations: []mixin.Node{
			{Name: "T2", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "b", Type: mixin.FieldInt}}},
			{Name: "T1", Kind: mixin.KindTrait, Supertypes: []string{"T2"},
				Fields: []mixin.Field{{Name: "x", Type: mixin.FieldInt}}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1", "T2"},
				Fields: []mixin.Field{{Name: "y", Type: mixin.FieldInt}}},
		},
		Initializers: map[string]construct.Initializer{
			"T2": assignInt("b", 1),
			"T1": assignInt("x", 2),
			"C1": assignInt("y", 3),
		},
		WantOrder: []string{"T2", "T1", "C1"},
		WantTrace: "Creating C1;In T2: b=0;In T2: b=1;In T1: x=0;In T1: x=2;In C1: y=0;In C1: y=3;Created C1",
	}
}

func diamond() Scenario {
	return Scenario{
		Name:        "diamond",
		Description: "a shared supertype initializes exactly once; later mixins overwrite its field",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "tag", Type: mixin.FieldString}}},
			{Name: "T2", Kind: mixin.KindTrait, Supertypes: []string{"T1"}},
			{Name: "T3", Kind: mixin.KindTrait, Supertypes: []string{"T1"}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T2", "T3"}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": assignString("tag", "T1"),
			"T2": assignString("tag", "T2"),
			"T3": assignString("tag", "T3"),
			"C1": observe("tag"),
		},
		WantOrder: []string{"T1", "T2", "T3", "C1"},
		WantTrace: "Creating C1;In T1: tag=;In T1: tag=T1;In T2: tag=T1;In T2: tag=T2;In T3: tag=T2;In T3: tag=T3;In C1: tag=T3;Created C1",
	}
}

func overrideChain() Scenario {
	return Scenario{
		Name:        "override-chain",
		Description: "an abstract method implemented by a trait and overridden by the class",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Methods: []mixin.Method{
					{Name: "greet", Abstract: true, Result: "String"},
					{Name: "id", Result: "String"},
				}},
			{Name: "T2", Kind: mixin.KindTrait, Supertypes: []string{"T1"},
				Fields:  []mixin.Field{{Name: "greeting", Type: mixin.FieldString}},
				Methods: []mixin.Method{{Name: "greet", Result: "String"}}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T2"},
				Methods: []mixin.Method{{Name: "greet", Result: "String"}}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": note("ready"),
			"T2": assignString("greeting", "hello"),
			"C1": assignString("greeting", "hi"),
		},
		WantOrder: []string{"T1", "T2", "C1"},
		WantTrace: "Creating C1;In T1: ready;In T2: greeting=;In T2: greeting=hello;In C1: greeting=hello;In C1: greeting=hi;Created C1",
	}
}

func layeredCounter() Scenario {
	return Scenario{
		Name:        "layered-counter",
		Description: "each layer reads the value the previous layer left behind",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "level", Type: mixin.FieldInt}}},
			{Name: "T2", Kind: mixin.KindTrait, Supertypes: []string{"T1"}},
			{Name: "T3", Kind: mixin.KindTrait, Supertypes: []string{"T2"}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T3"}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": increment("level"),
			"T2": increment("level"),
			"T3": increment("level"),
			"C1": increment("level"),
		},
		WantOrder: []string{"T1", "T2", "T3", "C1"},
		WantTrace: "Creating C1;In T1: level=0;In T1: level=1;In T2: level=1;In T2: level=2;In T3: level=2;In T3: level=3;In C1: level=3;In C1: level=4;Created C1",
	}
}

func collectingList() Scenario {
	return Scenario{
		Name:        "collecting-list",
		Description: "a list field starts as List() and collects one entry per layer",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "tags", Type: mixin.FieldList}}},
			{Name: "T2", Kind: mixin.KindTrait},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1", "T2"}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": appendSelf("tags"),
			"T2": appendSelf("tags"),
			"C1": appendSelf("tags"),
		},
		WantOrder: []string{"T1", "T2", "C1"},
		WantTrace: "Creating C1;In T1: tags=List();In T1: tags=List(T1);In T2: tags=List(T1);In T2: tags=List(T1, T2);In C1: tags=List(T1, T2);In C1: tags=List(T1, T2, C1);Created C1",
	}
}

func optionalOwner() Scenario {
	return Scenario{
		Name:        "optional-owner",
		Description: "an option field reads as None until the class body fills it",
		Declarations: []mixin.Node{
			{Name: "T1", Kind: mixin.KindTrait,
				Fields: []mixin.Field{{Name: "owner", Type: mixin.FieldOption}}},
			{Name: "C1", Kind: mixin.KindBaseClass, Supertypes: []string{"T1"}},
		},
		Initializers: map[string]construct.Initializer{
			"T1": observe("owner"),
			"C1": func(b *construct.Builder) { b.Assign("owner", mixin.SomeValue("admin")) },
		},
		WantOrder: []string{"T1", "C1"},
		WantTrace: "Creating C1;In T1: owner=None;In C1: owner=None;In C1: owner=Some(admin);Created C1",
	}
}

func assignInt(field string, v int) construct.Initializer {
	return func(b *construct.Builder) { b.Assign(field, mixin.IntValue(v)) }
}

func assignString(field, v string) construct.Initializer {
	return func(b *construct.Builder) { b.Assign(field, mixin.StringValue(v)) }
}

func observe(field string) construct.Initializer {
	return func(b *construct.Builder) { b.Observe(field) }
}

func note(msg string) construct.Initializer {
	return func(b *construct.Builder) { b.Notef("%s", msg) }
}

func increment(field string) construct.Initializer {
	return func(b *construct.Builder) {
		v := b.Get(field)
		b.Assign(field, mixin.IntValue(v.Int+1))
	}
}

func appendSelf(field string) construct.Initializer {
	return func(b *construct.Builder) {
		v := b.Get(field)
		b.Assign(field, mixin.ListValue(append(v.List, b.Node())...))
	}
}
