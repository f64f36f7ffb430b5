// Package neo4j stores composition graphs in Neo4j. Nodes become
// (:Type {scenario, name}) vertices and supertype references become
// EXTENDS edges carrying their mixin position.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/graphstore"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Neo4jRepository implements graphstore.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// New creates a Neo4j-backed repository.
func New(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) StoreComposition(ctx context.Context, scenario string, g *composition.Graph) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Replace whatever this scenario stored before.
		_, err := tx.Run(ctx,
			"MATCH (n:Type {scenario: $scenario}) DETACH DELETE n",
			map[string]any{"scenario": scenario})
		if err != nil {
			return nil, err
		}

		for _, n := range g.Nodes() {
			fields, err := json.Marshal(n.Fields)
			if err != nil {
				return nil, err
			}
			methods, err := json.Marshal(n.Methods)
			if err != nil {
				return nil, err
			}
			_, err = tx.Run(ctx,
				"MERGE (n:Type {scenario: $scenario, name: $name}) "+
					"SET n.kind = $kind, n.fields = $fields, n.methods = $methods",
				map[string]any{
					"scenario": scenario,
					"name":     n.Name,
					"kind":     string(n.Kind),
					"fields":   string(fields),
					"methods":  string(methods),
				})
			if err != nil {
				return nil, err
			}
		}

		for _, n := range g.Nodes() {
			for pos, super := range n.Supertypes {
				_, err := tx.Run(ctx,
					"MATCH (a:Type {scenario: $scenario, name: $from}) "+
						"MATCH (b:Type {scenario: $scenario, name: $to}) "+
						"MERGE (a)-[e:EXTENDS]->(b) SET e.position = $pos",
					map[string]any{
						"scenario": scenario,
						"from":     n.Name,
						"to":       super,
						"pos":      pos,
					})
				if err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store composition %s: %w", scenario, err)
	}
	return nil
}

func (r *Neo4jRepository) LoadComposition(ctx context.Context, scenario string) ([]mixin.Node, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (n:Type {scenario: $scenario}) "+
				"OPTIONAL MATCH (n)-[e:EXTENDS]->(s:Type) "+
				"RETURN n.name AS name, n.kind AS kind, n.fields AS fields, n.methods AS methods, "+
				"collect({name: s.name, pos: e.position}) AS supers "+
				"ORDER BY name",
			map[string]any{"scenario": scenario})
		if err != nil {
			return nil, err
		}

		var decls []mixin.Node
		for records.Next(ctx) {
			rec := records.Record()
			name, _ := rec.Get("name")
			kind, _ := rec.Get("kind")
			fields, _ := rec.Get("fields")
			methods, _ := rec.Get("methods")
			supers, _ := rec.Get("supers")

			n := mixin.Node{
				Name: name.(string),
				Kind: mixin.Kind(kind.(string)),
			}
			if err := json.Unmarshal([]byte(fields.(string)), &n.Fields); err != nil {
				return nil, fmt.Errorf("decode fields of %s: %w", n.Name, err)
			}
			if err := json.Unmarshal([]byte(methods.(string)), &n.Methods); err != nil {
				return nil, fmt.Errorf("decode methods of %s: %w", n.Name, err)
			}
			n.Supertypes = orderedSupers(supers)
			decls = append(decls, n)
		}
		return decls, nil
	})
	if err != nil {
		return nil, err
	}
	decls := result.([]mixin.Node)
	if len(decls) == 0 {
		return nil, fmt.Errorf("no composition stored for scenario %q", scenario)
	}
	return decls, nil
}

func (r *Neo4jRepository) QuerySupertypes(ctx context.Context, scenario, node string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (:Type {scenario: $scenario, name: $name})-[e:EXTENDS]->(s:Type) "+
				"RETURN s.name ORDER BY e.position",
			map[string]any{"scenario": scenario, "name": node})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("s.name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) QuerySubtypes(ctx context.Context, scenario, node string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (sub:Type {scenario: $scenario})-[:EXTENDS]->(:Type {scenario: $scenario, name: $name}) "+
				"RETURN sub.name ORDER BY sub.name",
			map[string]any{"scenario": scenario, "name": node})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("sub.name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Scenarios(ctx context.Context) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (n:Type) RETURN DISTINCT n.scenario AS scenario ORDER BY scenario", nil)
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("scenario")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// orderedSupers sorts the collected {name, pos} maps by mixin position.
func orderedSupers(v any) []string {
	entries, _ := v.([]any)
	type super struct {
		name string
		pos  int64
	}
	var supers []super
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok || m["name"] == nil {
			continue
		}
		s := super{name: m["name"].(string)}
		if p, ok := m["pos"].(int64); ok {
			s.pos = p
		}
		supers = append(supers, s)
	}
	sort.Slice(supers, func(i, j int) bool { return supers[i].pos < supers[j].pos })
	out := make([]string, 0, len(supers))
	for _, s := range supers {
		out = append(out, s.name)
	}
	return out
}

var _ graphstore.Repository = (*Neo4jRepository)(nil)
