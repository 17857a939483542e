package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		require.False(t, id.IsEmpty(), "empty ID at iteration %d", i)
		require.False(t, ids[id], "duplicate ID %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, numIDs)
}

func TestRunIDRoundTrip(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseRunID("   ")
	assert.Error(t, err)

	_, err = ParseRunID("not-a-uuid")
	assert.Error(t, err)
}

func TestHashParts(t *testing.T) {
	assert.NotEqual(t, HashParts([]byte("ab"), []byte("c")), HashParts([]byte("a"), []byte("bc")))
	assert.Equal(t, NewHash([]byte("abc")), HashParts([]byte("abc")))
	assert.Len(t, HashParts([]byte("x"), nil).String(), 64)
}
