package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/condgate/pkg/errors"
)

func TestProgramCache_CompileOnce(t *testing.T) {
	c := newProgramCache(8)

	first, err := c.getOrCompile("x > 0")
	require.NoError(t, err)

	second, err := c.getOrCompile("x > 0")
	require.NoError(t, err)

	assert.Same(t, first, second, "repeat compilation should be served from cache")
	assert.Equal(t, 1, c.size())
}

func TestProgramCache_WhitespaceVariantsShareEntry(t *testing.T) {
	c := newProgramCache(8)

	_, err := c.getOrCompile("x > 0")
	require.NoError(t, err)
	_, err = c.getOrCompile("  x > 0\n")
	require.NoError(t, err)

	assert.Equal(t, 1, c.size())
}

func TestProgramCache_ValidationPrecedesCompilation(t *testing.T) {
	c := newProgramCache(8)

	_, err := c.getOrCompile("os.environ != None")
	require.Error(t, err)
	assert.True(t, errors.IsSecurityViolation(err))
	assert.Equal(t, 0, c.size(), "rejected conditions must not be cached")

	_, err = c.getOrCompile("x ==")
	require.Error(t, err)
	assert.True(t, errors.IsSyntaxError(err))
	assert.Equal(t, 0, c.size())
}

func TestProgramCache_Bounded(t *testing.T) {
	c := newProgramCache(4)

	for i := 0; i < 20; i++ {
		_, err := c.getOrCompile("x > " + string(rune('0'+i%10)))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, c.size(), 4)
}
