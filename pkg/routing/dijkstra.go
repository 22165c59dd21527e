package routing

import (
	"math"

	"campus_nav/pkg/graph"
)

const noNode = -1

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue,
// ordered by (Dist, Node). Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node int
	Dist float64
}

func less(a, b PQItem) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Node < b.Node
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds per-query state for a single-source Dijkstra search.
type QueryState struct {
	Dist    []float64
	Pred    []int
	Settled []bool
	PQ      MinHeap
	Pops    int // heap pops, stale entries included
}

// NewQueryState creates a QueryState for a graph with n nodes.
func NewQueryState(n int) *QueryState {
	qs := &QueryState{
		Dist:    make([]float64, n),
		Pred:    make([]int, n),
		Settled: make([]bool, n),
		PQ:      MinHeap{items: make([]PQItem, 0, n)},
	}
	for i := range qs.Dist {
		qs.Dist[i] = math.Inf(1)
		qs.Pred[i] = noNode
	}
	return qs
}

// search runs Dijkstra from start and stops once end is settled or the
// frontier is exhausted. Ties on distance settle the lowest node index first.
func search(g *graph.Graph, start, end int) *QueryState {
	qs := NewQueryState(g.NumNodes())
	qs.Dist[start] = 0
	qs.PQ.Push(start, 0)

	for qs.PQ.Len() > 0 {
		item := qs.PQ.Pop()
		qs.Pops++
		u := item.Node
		if qs.Settled[u] || item.Dist > qs.Dist[u] {
			continue // stale entry
		}
		qs.Settled[u] = true
		if u == end {
			break
		}

		eStart, eEnd := g.EdgesFrom(u)
		for e := eStart; e < eEnd; e++ {
			v := g.Head[e]
			if qs.Settled[v] {
				continue
			}
			alt := item.Dist + g.Weight[e]
			if alt < qs.Dist[v] || (alt == qs.Dist[v] && u < qs.Pred[v]) {
				qs.Dist[v] = alt
				qs.Pred[v] = u
				qs.PQ.Push(v, alt)
			}
		}
	}
	return qs
}

// reconstruct walks predecessors from end back to start. An unreached end
// yields just [end].
func (qs *QueryState) reconstruct(end int) []int {
	var path []int
	for u := end; u != noNode; u = qs.Pred[u] {
		path = append(path, u)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ShortestPath returns the minimum-weight sequence of node IDs from start to
// end. Any result shorter than 2 means there is no route: start == end gives
// [start], an unreachable end gives [end], and an unknown ID gives nil.
func ShortestPath(g *graph.Graph, start, end string) []string {
	s, ok := g.Lookup(start)
	if !ok {
		return nil
	}
	t, ok := g.Lookup(end)
	if !ok {
		return nil
	}

	qs := search(g, s, t)
	idx := qs.reconstruct(t)
	ids := make([]string, len(idx))
	for i, n := range idx {
		ids[i] = g.Nodes[n].ID
	}
	return ids
}

// PathLength sums the edge weights along ids. It returns false if two
// consecutive nodes are not connected.
func PathLength(g *graph.Graph, ids []string) (float64, bool) {
	var total float64
	for i := 0; i+1 < len(ids); i++ {
		u, ok := g.Lookup(ids[i])
		if !ok {
			return 0, false
		}
		v, ok := g.Lookup(ids[i+1])
		if !ok {
			return 0, false
		}
		w, ok := g.EdgeWeight(u, v)
		if !ok {
			return 0, false
		}
		total += w
	}
	return total, true
}
