package officials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/officials"
)

func TestRegistryLookup(t *testing.T) {
	r := officials.NewRegistry([]officials.Official{
		{ID: "b", Name: "Bertrand", Prestige: 40},
		{ID: "a", Name: "Adela", Administrative: 70},
	})

	o, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "Adela", o.Name)

	_, ok = r.Lookup("")
	assert.False(t, ok)

	r.Remove("a")
	_, ok = r.Lookup("a")
	assert.False(t, ok, "removed official must not resolve")

	r.Put(officials.Official{ID: "c"})
	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, officials.OfficialID("b"), all[0].ID)
	assert.Equal(t, 2, r.Len())
}

func TestNilRegistry(t *testing.T) {
	var r *officials.Registry
	_, ok := r.Lookup("a")
	assert.False(t, ok)
	assert.Nil(t, r.All())
	assert.Zero(t, r.Len())
}
