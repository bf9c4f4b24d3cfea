package knn

// topK keeps the k smallest (dist, index) pairs seen so far as a max-heap.
// Equal distances order by index so results do not depend on visit order.
type topK struct {
	k    int
	idx  []int
	dist []float64
}

func newTopK(k int) *topK {
	return &topK{k: k, idx: make([]int, 0, k), dist: make([]float64, 0, k)}
}

func (h *topK) reset() {
	h.idx = h.idx[:0]
	h.dist = h.dist[:0]
}

func (h *topK) less(a, b int) bool {
	if h.dist[a] != h.dist[b] {
		return h.dist[a] > h.dist[b]
	}
	return h.idx[a] > h.idx[b]
}

func (h *topK) swap(a, b int) {
	h.idx[a], h.idx[b] = h.idx[b], h.idx[a]
	h.dist[a], h.dist[b] = h.dist[b], h.dist[a]
}

// worse reports whether (d, j) would rank below the current root.
func (h *topK) worse(d float64, j int) bool {
	if d != h.dist[0] {
		return d > h.dist[0]
	}
	return j > h.idx[0]
}

// push offers a candidate. The caller is responsible for deduplication.
func (h *topK) push(j int, d float64) {
	if len(h.idx) < h.k {
		h.idx = append(h.idx, j)
		h.dist = append(h.dist, d)
		h.up(len(h.idx) - 1)
		return
	}
	if h.k == 0 || h.worse(d, j) {
		return
	}
	h.idx[0], h.dist[0] = j, d
	h.down(0)
}

func (h *topK) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.swap(i, p)
		i = p
	}
}

func (h *topK) down(i int) {
	n := len(h.idx)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		m := l
		if r := l + 1; r < n && h.less(r, l) {
			m = r
		}
		if !h.less(m, i) {
			return
		}
		h.swap(i, m)
		i = m
	}
}

// drain writes the heap contents ascending into idx and dist and returns
// the count written. The heap is empty afterwards.
func (h *topK) drain(idx []int, dist []float64) int {
	n := len(h.idx)
	for p := n - 1; p >= 0; p-- {
		idx[p], dist[p] = h.idx[0], h.dist[0]
		last := len(h.idx) - 1
		h.swap(0, last)
		h.idx = h.idx[:last]
		h.dist = h.dist[:last]
		h.down(0)
	}
	return n
}
