package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thing struct{ n int }

func TestAddGetDelete(t *testing.T) {
	tbl := New[thing]()
	id := tbl.Add(&thing{n: 1})
	require.NotZero(t, id)

	v, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, 1, v.n)

	tbl.Delete(id)
	_, ok = tbl.Get(id)
	assert.False(t, ok)
	tbl.Delete(id) // unknown id is a no-op
}

func TestIdsAreUniqueAndNonZero(t *testing.T) {
	tbl := New[thing]()
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := tbl.Add(&thing{n: i})
		require.NotZero(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 100, tbl.Len())
}

func TestEachToleratesDeleteFromCallback(t *testing.T) {
	tbl := New[thing]()
	for i := 0; i < 10; i++ {
		tbl.Add(&thing{n: i})
	}

	visited := 0
	tbl.Each(func(id uint64, _ *thing) {
		visited++
		tbl.Delete(id)
	})
	assert.Equal(t, 10, visited)
	assert.Equal(t, 0, tbl.Len())
}
