package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByIDOrTitle(t *testing.T) {
	store := NewMemoryStore(Seed())

	got, ok := store.Resolve("front-end")
	require.True(t, ok)
	assert.Equal(t, "Frontend Developer", got.Title)

	got, ok = store.Resolve("  backend developer ")
	require.True(t, ok)
	assert.Equal(t, "back-end", got.ID)

	_, ok = store.Resolve("astronaut")
	assert.False(t, ok)
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	items := store.List()
	items[0].ID = "mutated"
	assert.Equal(t, "front-end", store.List()[0].ID)
}

func TestSeedIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Seed() {
		assert.False(t, seen[r.ID], r.ID)
		seen[r.ID] = true
		assert.NotEmpty(t, r.Focus, r.ID)
	}
}
