package testutil

// SequenceRand returns predetermined values, cycling when exhausted.
//
// Example:
//
//	r := NewSequenceRand(3, 0)
//	r.IntN(10) // 3
//	r.IntN(10) // 0
//	r.IntN(10) // 3
//
// Values are reduced modulo n so they always satisfy the IntN contract.
type SequenceRand struct {
	values []int
	idx    int
}

// NewSequenceRand creates a generator over values. With no values it
// always returns 0.
func NewSequenceRand(values ...int) *SequenceRand {
	return &SequenceRand{values: values}
}

// IntN returns the next value in [0, n).
func (r *SequenceRand) IntN(n int) int {
	if len(r.values) == 0 || n <= 0 {
		return 0
	}
	v := r.values[r.idx%len(r.values)]
	r.idx++
	if v < 0 {
		v = -v
	}
	return v % n
}
