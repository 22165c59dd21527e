package graph

import (
	"sort"
)

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []int
	rank   []byte
	size   []int
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the size of the set containing x.
func (uf *UnionFind) Size(x int) int {
	return uf.size[uf.Find(x)]
}

// Components returns the connected components of g as lists of node
// indices. Components are ordered by size, largest first, then by their
// lowest node index; members are in ascending index order.
func Components(g *Graph) [][]int {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for _, e := range g.Edges {
		uf.Union(e.From, e.To)
	}

	byRoot := make(map[int]int)
	var comps [][]int
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		ci, ok := byRoot[root]
		if !ok {
			ci = len(comps)
			byRoot[root] = ci
			comps = append(comps, nil)
		}
		comps[ci] = append(comps[ci], i)
	}

	sort.SliceStable(comps, func(i, j int) bool {
		return len(comps[i]) > len(comps[j])
	})
	return comps
}

// Connected reports whether nodes a and b (by ID) are in the same component.
func Connected(g *Graph, a, b string) bool {
	u, ok := g.Index[a]
	if !ok {
		return false
	}
	v, ok := g.Index[b]
	if !ok {
		return false
	}
	uf := NewUnionFind(g.NumNodes())
	for _, e := range g.Edges {
		uf.Union(e.From, e.To)
	}
	return uf.Find(u) == uf.Find(v)
}

// Isolated returns the IDs of nodes with no incident edge.
func Isolated(g *Graph) []string {
	var ids []string
	for i, n := range g.Nodes {
		start, end := g.EdgesFrom(i)
		if start == end {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
