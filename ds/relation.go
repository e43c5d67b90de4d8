package ds

import (
	"slices"
)

// Edge is one (left, right) pair of a Relation with its merged payload.
type Edge struct {
	Left  int
	Right int
	Bits  Bitset
}

type edgeKey struct {
	left, right int
}

// Relation is a many-to-many relation where every (left, right) pair occurs once.
// Granting an existing pair merges the payload bits into the existing edge.
type Relation struct {
	edges  []Edge
	byPair map[edgeKey]int
	left   Linked[int]
	right  Linked[int]
}

// Grant sets bit on the edge (left, right), creating the edge when needed.
// It returns the edge index and whether the edge was created.
func (r *Relation) Grant(left, right, bit int) (int, bool) {
	if r.byPair == nil {
		r.byPair = map[edgeKey]int{}
	}

	key := edgeKey{left: left, right: right}
	if i, exists := r.byPair[key]; exists {
		r.edges[i].Bits = r.edges[i].Bits.Set(bit)

		return i, false
	}

	r.edges = append(r.edges, Edge{Left: left, Right: right, Bits: NewBitset(bit)})
	i := len(r.edges) - 1
	r.byPair[key] = i
	r.left.Add(left, i)
	r.right.Add(right, i)

	return i, true
}

// Get returns the edge for the pair.
func (r *Relation) Get(left, right int) (Edge, bool) {
	i, exists := r.byPair[edgeKey{left: left, right: right}]
	if !exists {
		return Edge{}, false
	}

	return r.edges[i], true
}

// ByLeft returns all edges with the given left side, ordered by right side.
func (r *Relation) ByLeft(left int) []Edge {
	return r.collect(&r.left, left, func(e Edge) int { return e.Right })
}

// ByRight returns all edges with the given right side, ordered by left side.
func (r *Relation) ByRight(right int) []Edge {
	return r.collect(&r.right, right, func(e Edge) int { return e.Left })
}

func (r *Relation) Len() int {
	return len(r.edges)
}

func (r *Relation) collect(index *Linked[int], owner int, other func(Edge) int) []Edge {
	var result []Edge

	for i := range index.Range(owner) {
		result = append(result, r.edges[i])
	}

	slices.SortFunc(result, func(a, b Edge) int {
		return other(a) - other(b)
	})

	return result
}
