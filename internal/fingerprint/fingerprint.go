// Package fingerprint derives content-addressable hashes for
// composition graphs. A node's composite hash covers its own
// declaration plus every transitive supertype, so an unchanged
// composite guarantees an unchanged linearization; verification runs
// use that to skip scenarios whose compositions did not move.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Fingerprint is the content hash of one composition node.
type Fingerprint struct {
	// NodeHash is the SHA-256 of the node's canonical declaration.
	NodeHash string `json:"node_hash"`
	// AncestorHashes are sorted node hashes of all transitive supertypes.
	AncestorHashes []string `json:"ancestor_hashes,omitempty"`
	// CompositeHash combines NodeHash + AncestorHashes. If it hasn't
	// changed, nothing this node's linearization depends on has changed.
	CompositeHash string `json:"composite_hash"`
}

// Compute returns fingerprints for every node in the graph.
func Compute(g *composition.Graph) map[string]*Fingerprint {
	nodeHashes := make(map[string]string, g.Len())
	for _, n := range g.Nodes() {
		nodeHashes[n.Name] = hashBytes(canonicalNode(n))
	}

	result := make(map[string]*Fingerprint, g.Len())
	for _, n := range g.Nodes() {
		fp := &Fingerprint{NodeHash: nodeHashes[n.Name]}
		for ancestor := range ancestors(g, n.Name) {
			fp.AncestorHashes = append(fp.AncestorHashes, nodeHashes[ancestor])
		}
		sort.Strings(fp.AncestorHashes)
		fp.CompositeHash = computeComposite(fp.NodeHash, fp.AncestorHashes)
		result[n.Name] = fp
	}
	return result
}

// GraphHash returns the composite hash of the root node. Connectivity
// validation makes every declared node an ancestor of the root, so this
// single hash keys the whole composition.
func GraphHash(g *composition.Graph) string {
	return Compute(g)[g.Root().Name].CompositeHash
}

// ScenarioHashes builds every registered scenario's graph and returns
// its hash by scenario name.
func ScenarioHashes(reg *catalog.Registry) (map[string]string, error) {
	out := make(map[string]string, reg.Len())
	for _, s := range reg.All() {
		g, err := s.Graph()
		if err != nil {
			return nil, err
		}
		out[s.Name] = GraphHash(g)
	}
	return out, nil
}

// ancestors returns the transitive supertype set of a node.
func ancestors(g *composition.Graph, name string) map[string]bool {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		n, ok := g.Node(cur)
		if !ok {
			return
		}
		for _, super := range n.Supertypes {
			if seen[super] {
				continue
			}
			seen[super] = true
			walk(super)
		}
	}
	walk(name)
	return seen
}

// canonicalNode serializes a declaration deterministically. Supertype,
// field, and method order stay as declared: the order is semantic.
func canonicalNode(n *mixin.Node) []byte {
	var b strings.Builder
	b.WriteString(n.Name)
	b.WriteString("|")
	b.WriteString(string(n.Kind))
	b.WriteString("|")
	b.WriteString(strings.Join(n.Supertypes, ","))
	b.WriteString("|")
	for _, f := range n.Fields {
		fmt.Fprintf(&b, "%s:%s;", f.Name, f.Type)
	}
	b.WriteString("|")
	for _, m := range n.Methods {
		fmt.Fprintf(&b, "%s:%t:%s;", m.Name, m.Abstract, m.Result)
	}
	return []byte(b.String())
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func computeComposite(nodeHash string, ancestorHashes []string) string {
	parts := make([]string, 0, 1+len(ancestorHashes))
	parts = append(parts, nodeHash)
	parts = append(parts, ancestorHashes...)
	combined := strings.Join(parts, "|")
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}
