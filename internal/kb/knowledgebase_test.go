package kb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOnMissingFileReturnsNotFound(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "kb.yaml"), nil)
	_, found, err := k.Get("anything")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "kb.yaml"), nil)
	require.NoError(t, k.Set("tone", "playful"))

	v, found, err := k.Get("tone")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "playful", v)
}

func TestDeleteRemovesKey(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "kb.yaml"), nil)
	require.NoError(t, k.Set("tone", "playful"))
	require.NoError(t, k.Delete("tone"))

	_, found, err := k.Get("tone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "kb.yaml"), nil)
	assert.NoError(t, k.Delete("never-set"))
}

func TestKeysSortedAndComplete(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "kb.yaml"), nil)
	require.NoError(t, k.Set("zeta", "1"))
	require.NoError(t, k.Set("alpha", "2"))

	keys, err := k.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, keys)
}
