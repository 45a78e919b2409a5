// Package index implements an in-memory HNSW graph for approximate
// k-nearest-neighbor search under cosine distance. An index is built per
// query over the vectors of the requested documents and discarded
// afterwards; it is not persisted and not safe for concurrent mutation.
package index

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Config holds the HNSW build parameters. Higher EfConstruction and M give
// better recall at the cost of a slower build.
type Config struct {
	// MaxElements bounds the number of vectors the index accepts.
	MaxElements int
	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int
	// M is the maximum number of graph neighbors per node above level 0;
	// level 0 allows twice as many.
	M int
}

// DefaultConfig mirrors the construction parameters the retrieval pipeline
// was tuned with.
func DefaultConfig() Config {
	return Config{MaxElements: 10000, EfConstruction: 200, M: 16}
}

// Hit is one search result: the insertion ordinal of the matched vector
// and its similarity score (1 - cosine distance) clamped to [0,1].
type Hit struct {
	Ordinal int
	Score   float64
}

type node struct {
	vec       []float64
	neighbors [][]int
}

// Index is an HNSW graph over unit-normalized vectors.
type Index struct {
	dim      int
	cfg      Config
	ef       int
	levelMul float64
	rng      *rand.Rand
	nodes    []*node
	entry    int
	maxLevel int
}

// New creates an empty index for vectors of the given dimension.
func New(dim int, cfg Config) (*Index, error) {
	if dim <= 0 {
		return nil, errors.New("index: dimension must be positive")
	}
	if cfg.MaxElements <= 0 {
		cfg.MaxElements = DefaultConfig().MaxElements
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = DefaultConfig().EfConstruction
	}
	if cfg.M <= 1 {
		cfg.M = DefaultConfig().M
	}
	return &Index{
		dim:      dim,
		cfg:      cfg,
		ef:       50,
		levelMul: 1 / math.Log(float64(cfg.M)),
		rng:      rand.New(rand.NewSource(1)),
		entry:    -1,
		maxLevel: -1,
	}, nil
}

// SetEf sets the candidate list size used at query time. Values below k
// are raised to k during search.
func (idx *Index) SetEf(ef int) {
	if ef > 0 {
		idx.ef = ef
	}
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int { return len(idx.nodes) }

// Add inserts a vector. Ordinals are assigned in insertion order.
func (idx *Index) Add(vec []float64) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("index: vector has dimension %d, want %d", len(vec), idx.dim)
	}
	if len(idx.nodes) >= idx.cfg.MaxElements {
		return fmt.Errorf("index: capacity %d exhausted", idx.cfg.MaxElements)
	}

	level := idx.randomLevel()
	n := &node{vec: normalize(vec), neighbors: make([][]int, level+1)}
	id := len(idx.nodes)
	idx.nodes = append(idx.nodes, n)

	if idx.entry < 0 {
		idx.entry = id
		idx.maxLevel = level
		return nil
	}

	curr := idx.entry
	for l := idx.maxLevel; l > level; l-- {
		curr = idx.greedyClosest(n.vec, curr, l)
	}

	top := level
	if idx.maxLevel < top {
		top = idx.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := idx.searchLayer(n.vec, curr, idx.cfg.EfConstruction, l)
		maxM := idx.cfg.M
		if l == 0 {
			maxM = 2 * idx.cfg.M
		}
		selected := selectClosest(candidates, maxM)
		n.neighbors[l] = make([]int, 0, len(selected))
		for _, c := range selected {
			n.neighbors[l] = append(n.neighbors[l], c.id)
			idx.link(c.id, id, l, maxM)
		}
		if len(candidates) > 0 {
			curr = candidates[0].id
		}
	}

	if level > idx.maxLevel {
		idx.entry = id
		idx.maxLevel = level
	}
	return nil
}

// Search returns up to k hits sorted by non-increasing score, ties broken
// by insertion order. Searching an empty index is an error.
func (idx *Index) Search(query []float64, k int) ([]Hit, error) {
	if len(idx.nodes) == 0 {
		return nil, errors.New("index: search on empty index")
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("index: query has dimension %d, want %d", len(query), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(idx.nodes) {
		k = len(idx.nodes)
	}
	q := normalize(query)

	curr := idx.entry
	for l := idx.maxLevel; l > 0; l-- {
		curr = idx.greedyClosest(q, curr, l)
	}
	ef := idx.ef
	if ef < k {
		ef = k
	}
	candidates := idx.searchLayer(q, curr, ef, 0)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		score := 1 - c.dist
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		hits = append(hits, Hit{Ordinal: c.id, Score: score})
	}
	return hits, nil
}

// selectClosest keeps the m nearest candidates. The input from searchLayer
// is already ordered closest-first.
func selectClosest(candidates []scored, m int) []scored {
	if len(candidates) <= m {
		return candidates
	}
	return candidates[:m]
}

func (idx *Index) randomLevel() int {
	r := idx.rng.Float64()
	for r == 0 {
		r = idx.rng.Float64()
	}
	return int(-math.Log(r) * idx.levelMul)
}

// greedyClosest walks one layer toward the query until no neighbor
// improves the distance.
func (idx *Index) greedyClosest(q []float64, start, level int) int {
	curr := start
	currDist := cosineDist(q, idx.nodes[curr].vec)
	for {
		improved := false
		for _, nb := range idx.neighborsAt(curr, level) {
			if d := cosineDist(q, idx.nodes[nb].vec); d < currDist {
				curr, currDist = nb, d
				improved = true
			}
		}
		if !improved {
			return curr
		}
	}
}

type scored struct {
	id   int
	dist float64
}

// searchLayer runs best-first search over one layer, keeping at most ef
// results. The returned slice has the closest candidate first.
func (idx *Index) searchLayer(q []float64, entry, ef, level int) []scored {
	visited := map[int]struct{}{entry: {}}
	start := scored{id: entry, dist: cosineDist(q, idx.nodes[entry].vec)}

	cand := &minHeap{start}
	res := &maxHeap{start}

	for cand.Len() > 0 {
		c := heap.Pop(cand).(scored)
		worst := (*res)[0].dist
		if c.dist > worst && res.Len() >= ef {
			break
		}
		for _, nb := range idx.neighborsAt(c.id, level) {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			d := cosineDist(q, idx.nodes[nb].vec)
			if res.Len() < ef || d < (*res)[0].dist {
				heap.Push(cand, scored{id: nb, dist: d})
				heap.Push(res, scored{id: nb, dist: d})
				if res.Len() > ef {
					heap.Pop(res)
				}
			}
		}
	}
	out := make([]scored, res.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(res).(scored)
	}
	return out
}

// link adds target to the neighbor list of id at the given level, pruning
// back to the closest maxM when the list overflows.
func (idx *Index) link(id, target, level, maxM int) {
	n := idx.nodes[id]
	if level >= len(n.neighbors) {
		return
	}
	n.neighbors[level] = append(n.neighbors[level], target)
	if len(n.neighbors[level]) <= maxM {
		return
	}
	cands := make([]scored, 0, len(n.neighbors[level]))
	for _, nb := range n.neighbors[level] {
		cands = append(cands, scored{id: nb, dist: cosineDist(n.vec, idx.nodes[nb].vec)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	pruned := make([]int, 0, maxM)
	for _, c := range cands[:maxM] {
		pruned = append(pruned, c.id)
	}
	n.neighbors[level] = pruned
}

func (idx *Index) neighborsAt(id, level int) []int {
	n := idx.nodes[id]
	if level >= len(n.neighbors) {
		return nil
	}
	return n.neighbors[level]
}

// cosineDist assumes unit vectors, so the distance is 1 - dot product.
func cosineDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return 1 - s
}

func normalize(vec []float64) []float64 {
	out := make([]float64, len(vec))
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		copy(out, vec)
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

type minHeap []scored

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxHeap []scored

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
