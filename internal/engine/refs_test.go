package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/puzzlebox/internal/ir"
)

func TestReferenceTable_RegistersOwnKeyEntriesAndArguments(t *testing.T) {
	puzzles := []ir.Puzzle{
		{
			Key: 100,
			Criteria: []ir.Criteria{
				{
					{Key: 5, Op: ir.OpEqual, Argument: 1},
					{Key: 6, Op: ir.OpEqual, Argument: 7, ArgumentIsKey: true},
				},
				{{Key: 5, Op: ir.OpEqual, Argument: 2}},
			},
		},
		{
			Key:      101,
			Criteria: []ir.Criteria{{{Key: 5, Op: ir.OpGreater, Argument: 0}}},
		},
	}

	table := NewReferenceTable(puzzles)

	assert.Equal(t, []int{0}, table.Lookup(100))
	assert.Equal(t, []int{0, 1}, table.Lookup(5), "rule 0 listed once despite two entries on key 5")
	assert.Equal(t, []int{0}, table.Lookup(6))
	assert.Equal(t, []int{0}, table.Lookup(7), "key-valued argument is a trigger")
	assert.Equal(t, []int{1}, table.Lookup(101))
	assert.Nil(t, table.Lookup(99))
	assert.Equal(t, 5, table.Len())
}

func TestReferenceTable_LiteralArgumentIsNotAKey(t *testing.T) {
	table := NewReferenceTable([]ir.Puzzle{{
		Key:      100,
		Criteria: []ir.Criteria{{{Key: 5, Op: ir.OpEqual, Argument: 42}}},
	}})

	assert.Nil(t, table.Lookup(42))
}

func TestReferenceTable_OwnKeyAlsoCriteriaKey(t *testing.T) {
	table := NewReferenceTable([]ir.Puzzle{{
		Key:      100,
		Criteria: []ir.Criteria{{{Key: 100, Op: ir.OpNotEqual, Argument: 3}}},
	}})

	assert.Equal(t, []int{0}, table.Lookup(100))
	assert.Equal(t, 1, table.Len())
}

func TestReferenceTable_Nil(t *testing.T) {
	var table *ReferenceTable
	assert.Nil(t, table.Lookup(1))
	assert.Equal(t, 0, table.Len())
}
