package engine

import "github.com/roach88/puzzlebox/internal/ir"

// ReferenceTable maps a state key to the indices of the rules in one scope
// that must be re-checked when the key changes.
//
// A rule is registered under its own key, under every criteria entry key
// and under every key-valued argument. Each rule appears at most once per
// key, in rule order.
type ReferenceTable struct {
	byKey map[uint32][]int
}

// NewReferenceTable indexes puzzles.
func NewReferenceTable(puzzles []ir.Puzzle) *ReferenceTable {
	t := &ReferenceTable{byKey: make(map[uint32][]int)}
	for i := range puzzles {
		p := &puzzles[i]
		t.add(p.Key, i)
		for _, group := range p.Criteria {
			for _, entry := range group {
				t.add(entry.Key, i)
				if entry.ArgumentIsKey {
					t.add(uint32(entry.Argument), i)
				}
			}
		}
	}
	return t
}

// add relies on rules being added in index order: a duplicate can only be
// the last element.
func (t *ReferenceTable) add(key uint32, idx int) {
	refs := t.byKey[key]
	if n := len(refs); n > 0 && refs[n-1] == idx {
		return
	}
	t.byKey[key] = append(refs, idx)
}

// Lookup returns the rules referencing key. The slice must not be modified.
func (t *ReferenceTable) Lookup(key uint32) []int {
	if t == nil {
		return nil
	}
	return t.byKey[key]
}

// Len returns the number of indexed keys.
func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}
