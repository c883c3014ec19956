package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInstallGetRemove(t *testing.T) {
	table := NewTable()
	p := New("peer-1", &fakeSink{}, nil)

	table.Install(p)
	assert.Equal(t, 1, table.Len())

	got, ok := table.Get("peer-1")
	require.True(t, ok)
	assert.Same(t, p, got)

	removed, ok := table.Remove("peer-1")
	require.True(t, ok)
	assert.Same(t, p, removed)
	assert.Equal(t, 0, table.Len())

	_, ok = table.Remove("peer-1")
	assert.False(t, ok, "removing an already-removed peer is a no-op")
}

func TestTableInstallReplacesDuplicateID(t *testing.T) {
	table := NewTable()
	first := New("peer-1", &fakeSink{}, nil)
	second := New("peer-1", &fakeSink{}, nil)

	table.Install(first)
	table.Install(second)

	assert.Equal(t, 1, table.Len(), "a duplicate peer-id replaces, it doesn't add a second entry")
	got, _ := table.Get("peer-1")
	assert.Same(t, second, got)
}

func TestTableIDs(t *testing.T) {
	table := NewTable()
	table.Install(New("a", &fakeSink{}, nil))
	table.Install(New("b", &fakeSink{}, nil))

	ids := table.IDs()
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
