package engine

// workQueue is a scope's double-buffered re-check queue.
//
// Writes push into the pending buffer. A pass swaps buffers and drains the
// other one, so rules queued while draining wait for the next pass. The
// queued set holds the rules already in the pending buffer and is cleared
// on every swap; rules themselves stay immutable.
type workQueue struct {
	pending []int
	exec    []int
	queued  map[int]struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{queued: make(map[int]struct{})}
}

// push queues rule idx. It returns false if idx is already pending.
func (q *workQueue) push(idx int) bool {
	if _, ok := q.queued[idx]; ok {
		return false
	}
	q.queued[idx] = struct{}{}
	q.pending = append(q.pending, idx)
	return true
}

// swap moves the pending buffer into the drain position and returns it.
// The returned slice stays valid until the next swap.
func (q *workQueue) swap() []int {
	q.exec, q.pending = q.pending, q.exec[:0]
	clear(q.queued)
	return q.exec
}

// contains reports whether idx is pending.
func (q *workQueue) contains(idx int) bool {
	_, ok := q.queued[idx]
	return ok
}

// len returns the number of pending rules.
func (q *workQueue) len() int {
	return len(q.pending)
}

// reset drops everything.
func (q *workQueue) reset() {
	q.pending = q.pending[:0]
	q.exec = q.exec[:0]
	clear(q.queued)
}
