package knn

import (
	"context"
	"math"
	"math/rand"

	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/viterin/vek"
)

// ApproxOptions tunes the random projection forest.
type ApproxOptions struct {
	// Trees is the number of trees. Zero picks min(64, 5+round(n^¼)).
	Trees int
	// LeafSize is the largest leaf. Zero picks max(32, 2k).
	LeafSize int
	// Refine is the number of neighbor-of-neighbor rounds. Zero means 2,
	// negative disables refinement.
	Refine int
	// Seed drives hyperplane selection and the random fill.
	Seed int64
}

func (o ApproxOptions) withDefaults(n, k int) ApproxOptions {
	if o.Trees <= 0 {
		o.Trees = min(64, 5+int(math.Round(math.Pow(float64(n), 0.25))))
	}
	if o.LeafSize <= 0 {
		o.LeafSize = max(32, 2*k)
	}
	if o.Refine == 0 {
		o.Refine = 2
	}
	if o.Refine < 0 {
		o.Refine = 0
	}
	return o
}

// rpTree is a flattened random projection tree: only the leaf partition is
// kept since queries are the indexed points themselves.
type rpTree struct {
	leafOf []int32
	leaves [][]int
}

// Approximate builds the kNN lists from a random projection forest and
// refines them with neighbor-of-neighbor passes. Points still short of k
// candidates are filled deterministically from the rest of the cloud.
func Approximate(ctx context.Context, pool *parallel.Pool, x PointCloud, k int, opts ApproxOptions) (*Neighbors, error) {
	if k > x.N-1 {
		k = x.N - 1
	}
	if k < 0 {
		k = 0
	}
	if k == 0 {
		return newNeighbors(x.N, 0), nil
	}
	opts = opts.withDefaults(x.N, k)

	trees := make([]rpTree, opts.Trees)
	tasks := make([]func(), opts.Trees)
	for t := range trees {
		t := t
		tasks[t] = func() {
			rng := rand.New(rand.NewSource(opts.Seed + int64(t)*7919))
			trees[t] = buildTree(x, opts.LeafSize, rng)
		}
	}
	pool.Run(tasks...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nb := newNeighbors(x.N, k)
	stamps := newStamps(pool.Blocks(x.N), x.N)
	pool.For(x.N, func(w, lo, hi int) {
		diff := make([]float64, x.D)
		h := newTopK(k)
		st := stamps[w]
		for i := lo; i < hi; i++ {
			h.reset()
			st.next()
			st.mark(i)
			xi := x.Row(i)
			for t := range trees {
				leaf := trees[t].leaves[trees[t].leafOf[i]]
				for _, j := range leaf {
					if st.mark(j) {
						h.push(j, sqDist(diff, xi, x.Row(j)))
					}
				}
			}
			nb.Count[i] = h.drain(nb.Index[i*k:(i+1)*k], nb.Dist2[i*k:(i+1)*k])
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for r := 0; r < opts.Refine; r++ {
		nb = refine(pool, x, nb, stamps)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	fill(pool, x, nb, stamps, opts.Seed)
	return nb, nil
}

// refine offers every point the neighbors of its current neighbors.
// Reads the previous lists and writes a fresh set, so the pass is
// order-independent.
func refine(pool *parallel.Pool, x PointCloud, prev *Neighbors, stamps []*stampSet) *Neighbors {
	k := prev.K
	next := newNeighbors(x.N, k)
	pool.For(x.N, func(w, lo, hi int) {
		diff := make([]float64, x.D)
		h := newTopK(k)
		st := stamps[w]
		for i := lo; i < hi; i++ {
			h.reset()
			st.next()
			st.mark(i)
			xi := x.Row(i)
			idx, dist := prev.Of(i)
			for p, j := range idx {
				st.mark(j)
				h.push(j, dist[p])
			}
			for _, j := range idx {
				nj, _ := prev.Of(j)
				for _, l := range nj {
					if st.mark(l) {
						h.push(l, sqDist(diff, xi, x.Row(l)))
					}
				}
			}
			next.Count[i] = h.drain(next.Index[i*k:(i+1)*k], next.Dist2[i*k:(i+1)*k])
		}
	})
	return next
}

// fill completes short lists by scanning the cloud from a seeded offset.
func fill(pool *parallel.Pool, x PointCloud, nb *Neighbors, stamps []*stampSet, seed int64) {
	k := nb.K
	pool.For(x.N, func(w, lo, hi int) {
		diff := make([]float64, x.D)
		h := newTopK(k)
		st := stamps[w]
		for i := lo; i < hi; i++ {
			if nb.Count[i] >= k {
				continue
			}
			h.reset()
			st.next()
			st.mark(i)
			xi := x.Row(i)
			idx, dist := nb.Of(i)
			for p, j := range idx {
				st.mark(j)
				h.push(j, dist[p])
			}
			rng := rand.New(rand.NewSource(seed ^ int64(i+1)*2654435761))
			start := rng.Intn(x.N)
			need := k - len(idx)
			for s := 0; s < x.N && need > 0; s++ {
				j := (start + s) % x.N
				if st.mark(j) {
					h.push(j, sqDist(diff, xi, x.Row(j)))
					need--
				}
			}
			nb.Count[i] = h.drain(nb.Index[i*k:(i+1)*k], nb.Dist2[i*k:(i+1)*k])
		}
	})
}

func buildTree(x PointCloud, leafSize int, rng *rand.Rand) rpTree {
	t := rpTree{leafOf: make([]int32, x.N)}
	idx := make([]int, x.N)
	for i := range idx {
		idx[i] = i
	}
	normal := make([]float64, x.D)
	mid := make([]float64, x.D)
	var split func(part []int)
	split = func(part []int) {
		if len(part) <= leafSize {
			leaf := append([]int(nil), part...)
			id := int32(len(t.leaves))
			for _, i := range leaf {
				t.leafOf[i] = id
			}
			t.leaves = append(t.leaves, leaf)
			return
		}
		a := rng.Intn(len(part))
		b := rng.Intn(len(part) - 1)
		if b >= a {
			b++
		}
		pa, pb := x.Row(part[a]), x.Row(part[b])
		vek.Sub_Into(normal, pb, pa)
		vek.Add_Into(mid, pa, pb)
		offset := vek.Dot(normal, mid) / 2

		// Hoare-style partition around the hyperplane.
		l, r := 0, len(part)-1
		for l <= r {
			if vek.Dot(normal, x.Row(part[l])) < offset {
				l++
				continue
			}
			part[l], part[r] = part[r], part[l]
			r--
		}
		if l == 0 || l == len(part) {
			rng.Shuffle(len(part), func(i, j int) { part[i], part[j] = part[j], part[i] })
			l = len(part) / 2
		}
		split(part[:l])
		split(part[l:])
	}
	split(idx)
	return t
}

// stampSet deduplicates candidates without clearing a bitmap per query.
type stampSet struct {
	cur   int32
	marks []int32
}

func newStamps(workers, n int) []*stampSet {
	s := make([]*stampSet, workers)
	for w := range s {
		s[w] = &stampSet{marks: make([]int32, n)}
	}
	return s
}

func (s *stampSet) next() {
	s.cur++
	if s.cur == math.MaxInt32 {
		clear(s.marks)
		s.cur = 1
	}
}

// mark records j and reports whether it was unseen.
func (s *stampSet) mark(j int) bool {
	if s.marks[j] == s.cur {
		return false
	}
	s.marks[j] = s.cur
	return true
}
