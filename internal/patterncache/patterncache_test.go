package patterncache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCachesExpressions(t *testing.T) {
	c := New(2)

	first, err := c.Compile("^a+$")
	require.NoError(t, err)
	second, err := c.Compile("^a+$")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestCompileEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)

	_, _ = c.Compile("a")
	_, _ = c.Compile("b")
	_, _ = c.Compile("a")
	_, _ = c.Compile("c")

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())
}

func TestCompileReportsInvalidExpressions(t *testing.T) {
	c := New(DefaultSize)

	_, err := c.Compile("(")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCompileConcurrent(t *testing.T) {
	c := New(DefaultSize)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				re, err := c.Compile(fmt.Sprintf("^x%d$", j%60))
				if err != nil || !re.MatchString(fmt.Sprintf("x%d", j%60)) {
					t.Errorf("unexpected result for %d: %v", j, err)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), DefaultSize)
}
