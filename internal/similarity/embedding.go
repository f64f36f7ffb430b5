package similarity

import (
	"hash/fnv"
	"math"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Dim is the embedding dimension: structural counters in the low slots,
// hashed node-shape buckets in the rest.
const Dim = 32

const bucketOffset = 12

// Embed derives a normalized feature vector from a composition graph.
// Two graphs embed identically exactly when their structure and naming
// match, and nearby when they differ in a few declarations.
func Embed(g *composition.Graph) []float32 {
	v := make([]float32, Dim)
	stats := g.Stats()

	v[0] = float32(stats.TotalNodes)
	v[1] = float32(stats.TraitCount)
	v[2] = float32(stats.TotalEdges)
	v[3] = float32(stats.MaxDepth)
	v[4] = float32(stats.MaxFanIn)
	v[5] = float32(len(stats.DiamondNodes))

	for _, n := range g.Nodes() {
		for _, f := range n.Fields {
			switch f.Type {
			case mixin.FieldInt:
				v[6]++
			case mixin.FieldString:
				v[7]++
			case mixin.FieldList:
				v[8]++
			case mixin.FieldOption:
				v[9]++
			}
		}
		for _, m := range n.Methods {
			if m.Abstract {
				v[11]++
			} else {
				v[10]++
			}
		}
		// Bucket each node by name and arity so sharing declarations
		// pulls two compositions together.
		bucket := bucketOffset + int(hashString(n.Name)%(Dim-bucketOffset))
		v[bucket] += 1 + float32(len(n.Supertypes))
	}

	normalize(v)
	return v
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// Cosine returns the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
