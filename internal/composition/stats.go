package composition

import "github.com/efebarandurmaz/mixdown/internal/mixin"

// Stats holds computed metrics about a composition graph.
type Stats struct {
	TotalNodes int `json:"total_nodes"`
	TraitCount int `json:"trait_count"`
	TotalEdges int `json:"total_edges"`
	// MaxDepth is the longest extends chain measured in nodes, root included.
	MaxDepth int `json:"max_depth"`
	// MaxFanIn is the highest number of distinct nodes mixing in one
	// ancestor; SharedNode names it.
	MaxFanIn   int    `json:"max_fan_in"`
	SharedNode string `json:"shared_node,omitempty"`
	// DiamondNodes lists ancestors reachable through more than one path.
	DiamondNodes []string `json:"diamond_nodes,omitempty"`
}

// Stats computes metrics for the graph.
func (g *Graph) Stats() Stats {
	s := Stats{TotalNodes: len(g.nodes)}

	fanIn := make(map[string]int, len(g.nodes))
	for _, name := range g.names {
		n := g.nodes[name]
		if n.Kind == mixin.KindTrait {
			s.TraitCount++
		}
		s.TotalEdges += len(n.Supertypes)
		for _, sup := range n.Supertypes {
			fanIn[sup]++
		}
	}

	for _, name := range g.names {
		if c := fanIn[name]; c > s.MaxFanIn {
			s.MaxFanIn = c
			s.SharedNode = name
		}
		if fanIn[name] >= 2 {
			s.DiamondNodes = append(s.DiamondNodes, name)
		}
	}

	depth := make(map[string]int, len(g.nodes))
	var chase func(name string) int
	chase = func(name string) int {
		if d, ok := depth[name]; ok {
			return d
		}
		best := 0
		for _, sup := range g.nodes[name].Supertypes {
			if d := chase(sup); d > best {
				best = d
			}
		}
		depth[name] = best + 1
		return best + 1
	}
	s.MaxDepth = chase(g.root)

	return s
}
