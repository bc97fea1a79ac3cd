package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Eviction(t *testing.T) {
	var evicted []string
	c, err := NewLRU[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)

	assert.True(t, c.Put("c", 3), "b is least recently used")
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	v, ok := c.Peek("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"b", "a"}, evicted)
}

func TestNewLRU_InvalidSize(t *testing.T) {
	_, err := NewLRU[string, int](0, nil)
	assert.Error(t, err)
}
