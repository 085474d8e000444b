package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("")
	assert.Equal(t, "run-0001", gen.Generate())
	assert.Equal(t, "run-0002", gen.Generate())

	named := NewSequentialIDs("scenario")
	assert.Equal(t, "scenario-0001", named.Generate())
}

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.PanicsWithValue(t, "FixedIDs: all 2 ids exhausted", func() { gen.Generate() })
}
