// Package parallel provides the fixed worker pool shared by the embedding
// kernels.
//
// A Pool owns a set of long-lived goroutines that drain a buffered job
// channel. Kernels split their index range into one contiguous block per
// worker with [Pool.For]; the block index doubles as a slot number for
// per-worker scratch buffers, so callers can keep private accumulators and
// merge them in block order afterwards.
//
// A nil *Pool is valid and runs everything on the calling goroutine.
package parallel

import (
	"runtime"
	"sync"
)

// Pool is a fixed-size worker pool. Run and For block until every
// submitted task has returned.
type Pool struct {
	size int
	jobs chan job
	once sync.Once
}

type job struct {
	fn func()
	wg *sync.WaitGroup
}

// New starts a pool with the given number of workers. Zero or a negative
// size means runtime.GOMAXPROCS(0). A size of one returns nil, which runs
// tasks serially.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if size <= 1 {
		return nil
	}
	p := &Pool{size: size, jobs: make(chan job, size*3)}
	for i := 0; i < size; i++ {
		go func() {
			for j := range p.jobs {
				j.fn()
				j.wg.Done()
			}
		}()
	}
	return p
}

// Size returns the number of workers, 1 for a nil pool.
func (p *Pool) Size() int {
	if p == nil {
		return 1
	}
	return p.size
}

// Run executes tasks concurrently and waits for all of them.
func (p *Pool) Run(tasks ...func()) {
	if p == nil {
		for _, t := range tasks {
			if t != nil {
				t()
			}
		}
		return
	}
	var wg sync.WaitGroup
	for _, t := range tasks {
		if t == nil {
			continue
		}
		wg.Add(1)
		p.jobs <- job{fn: t, wg: &wg}
	}
	wg.Wait()
}

// For splits [0, n) into at most Size() contiguous blocks and calls fn once
// per non-empty block. The block index passed as worker is in
// [0, Blocks(n)) and is stable for a given n and pool size.
func (p *Pool) For(n int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	blocks := p.Blocks(n)
	if blocks == 1 {
		fn(0, 0, n)
		return
	}
	tasks := make([]func(), blocks)
	for b := 0; b < blocks; b++ {
		lo, hi := Split(n, blocks, b)
		w := b
		tasks[b] = func() { fn(w, lo, hi) }
	}
	p.Run(tasks...)
}

// Blocks returns how many blocks For uses for n items.
func (p *Pool) Blocks(n int) int {
	b := p.Size()
	if n < b {
		b = n
	}
	if b < 1 {
		b = 1
	}
	return b
}

// Close stops the workers. It is safe to call more than once and on a nil
// pool.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.jobs) })
}

// Split returns the half-open range of block b when n items are divided
// into the given number of blocks. Earlier blocks receive the remainder.
func Split(n, blocks, b int) (lo, hi int) {
	q, r := n/blocks, n%blocks
	lo = b*q + min(b, r)
	hi = lo + q
	if b < r {
		hi++
	}
	return lo, hi
}
